package repository

import (
	"context"

	"pharmacy/internal/domain/model"
)

type OrderLineRepository interface {
	CreateBulk(ctx context.Context, orderID int64, lines []model.OrderLine) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error)
}
