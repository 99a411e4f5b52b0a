package repository

import (
	"context"

	"pharmacy/internal/domain/model"

	"gorm.io/gorm"
)

type OrderLineGormRepository struct {
	db *gorm.DB
}

// DI
func NewOrderLineGormRepository(db *gorm.DB) *OrderLineGormRepository {
	return &OrderLineGormRepository{db: db}
}

// 注文明細を一括作成
func (r *OrderLineGormRepository) CreateBulk(ctx context.Context, orderID int64, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	for i := range lines {
		lines[i].OrderID = orderID
	}

	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *OrderLineGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	var lines []model.OrderLine

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&lines).Error; err != nil {
		return nil, err
	}

	return lines, nil
}
