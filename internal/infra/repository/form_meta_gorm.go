package repository

import (
	"context"

	"pharmacy/internal/domain/model"

	"gorm.io/gorm"
)

type FormMetaGormRepository struct {
	db *gorm.DB
}

// DI
func NewFormMetaGormRepository(db *gorm.DB) *FormMetaGormRepository {
	return &FormMetaGormRepository{db: db}
}

func (r *FormMetaGormRepository) CreateBulk(ctx context.Context, records []model.FormMetaData) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *FormMetaGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.FormMetaData, error) {
	var records []model.FormMetaData

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
