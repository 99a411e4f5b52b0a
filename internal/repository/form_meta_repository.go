package repository

import (
	"context"

	"pharmacy/internal/domain/model"
)

type FormMetaRepository interface {
	CreateBulk(ctx context.Context, records []model.FormMetaData) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.FormMetaData, error)
}
