package repository

import (
	"context"

	"pharmacy/internal/domain/model"
)

// 管理画面の注文一覧
type OrderListFilter struct {
	Page   int
	Limit  int
	Status string
}

type OrderRepository interface {
	Create(ctx context.Context, o model.Order) (int64, error)
	FindByID(ctx context.Context, id int64) (model.Order, error)
	FindByCartID(ctx context.Context, cartID string) (model.Order, error)

	// 冪等キーでの引き当て。無ければfound=false。
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Order, bool, error)

	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error
}
