package repository

import (
	"context"
	"errors"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"

	"gorm.io/gorm"
)

type TransactionGormRepository struct {
	db *gorm.DB
}

// DI
func NewTransactionGormRepository(db *gorm.DB) *TransactionGormRepository {
	return &TransactionGormRepository{db: db}
}

func (r *TransactionGormRepository) Create(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

func (r *TransactionGormRepository) FindByOrderID(ctx context.Context, orderID int64) (model.Transaction, error) {
	var t model.Transaction

	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Transaction{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}
