package repository

import (
	"context"
	"errors"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

// DI
func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, o model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, id int64) (model.Order, error) {
	var o model.Order

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByCartID(ctx context.Context, cartID string) (model.Order, error) {
	var o model.Order

	err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 冪等キーでの引き当て。無ければfound=false。
func (r *OrderGormRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Order, bool, error) {
	var o model.Order

	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Order{})

	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit

	var orders []model.Order
	err := tx.
		Order("created_at desc").
		Limit(f.Limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
