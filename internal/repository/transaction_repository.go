package repository

import (
	"context"

	"pharmacy/internal/domain/model"
)

type TransactionRepository interface {
	Create(ctx context.Context, t model.Transaction) (model.Transaction, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Transaction, error)
}
