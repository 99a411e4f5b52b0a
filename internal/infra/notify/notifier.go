// Package notify は注文確定後のfire-and-forget通知を持ちます。
// 通知失敗はログに残すだけで、注文処理には影響させない。
package notify

import (
	"context"

	"pharmacy/internal/domain/model"
)

type OrderNoticeLine struct {
	ProductID int64
	Quantity  int64
	Price     float64
}

// 通知に必要な注文サマリ
type OrderNotice struct {
	OrderID       int64
	OrderNumber   string
	CustomerEmail string
	TotalAmount   float64
	Lines         []OrderNoticeLine
	Address       model.Address
}

type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, n OrderNotice) error
}
