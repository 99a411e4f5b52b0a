package repository

import (
	"context"

	"pharmacy/internal/domain/model"
)

type CustomerRepository interface {
	FindByID(ctx context.Context, id int64) (model.Customer, error)
	FindByEmail(ctx context.Context, email string) (model.Customer, error)

	// emailで引き当てて無ければ作る。住所を更新しカート参照をクリアする。
	UpsertByEmail(ctx context.Context, email string, addr model.Address) (model.Customer, error)
}
