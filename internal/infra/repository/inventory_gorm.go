package repository

import (
	"context"
	"errors"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

// DI
func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) SetStock(ctx context.Context, productID int64, newStock int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("quantity", newStock)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// qtyぶん減算して残量を返す。行ロックで同時減算でもずれない。
func (r *InventoryGormRepository) Decrease(ctx context.Context, productID int64, qty int64) (int64, error) {
	var remaining int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv model.Inventory

		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ?", productID).
			First(&inv).Error

		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return repo.ErrNotFound
		}
		if findErr != nil {
			return findErr
		}

		remaining = inv.Quantity - qty

		return tx.Model(&model.Inventory{}).
			Where("id = ?", inv.ID).
			Update("quantity", remaining).Error
	})

	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// 在庫戻し（キャンセルなど）
func (r *InventoryGormRepository) Increase(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("quantity", gorm.Expr("quantity + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
