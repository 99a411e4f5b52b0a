package repository

import "context"

type InventoryRepository interface {
	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// qtyぶん減算して残量を返す。0以下にもなり得る（確定済み決済は拒めない）。
	Decrease(ctx context.Context, productID int64, qty int64) (int64, error)

	// 在庫戻し（キャンセルなど）
	Increase(ctx context.Context, productID int64, qty int64) error
}
