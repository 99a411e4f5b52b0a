package repository

import (
	"context"
	"errors"
	"time"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerGormRepository struct {
	db *gorm.DB
}

// DI
func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

func (r *CustomerGormRepository) FindByID(ctx context.Context, id int64) (model.Customer, error) {
	var c model.Customer

	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (r *CustomerGormRepository) FindByEmail(ctx context.Context, email string) (model.Customer, error) {
	var c model.Customer

	err := r.db.WithContext(ctx).Where("email = ?", email).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

// emailで引き当てて無ければ作る。住所を更新しカート参照をクリアする。
func (r *CustomerGormRepository) UpsertByEmail(ctx context.Context, email string, addr model.Address) (model.Customer, error) {
	var c model.Customer

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", email).
			First(&c).Error

		if findErr == nil {
			c.Address = addr
			c.CartID = nil
			c.UpdatedAt = time.Now()
			return tx.Model(&model.Customer{}).
				Where("id = ?", c.ID).
				Updates(map[string]any{
					"addr_line1":     addr.Line1,
					"addr_line2":     addr.Line2,
					"addr_city":      addr.City,
					"addr_state":     addr.State,
					"addr_post_code": addr.PostCode,
					"addr_country":   addr.Country,
					"cart_id":        nil,
				}).Error
		}

		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る
		now := time.Now()
		c = model.Customer{
			Email:     email,
			Address:   addr,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&c).Error
	})

	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}
