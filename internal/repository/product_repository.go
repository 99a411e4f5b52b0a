package repository

import (
	"context"
	"errors"

	"pharmacy/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
}

// カート計算に必要な商品スナップショット。読み取りのみでロックしない。
type ProductForCart struct {
	ID                int64
	Name              string
	SellingPrice      float64
	TaxRate           float64
	AvailableQuantity int64
	LimitPerUser      int64
}

// カート表示用の商品メタ
type ProductMeta struct {
	ID      int64
	Name    string
	Slug    string
	Image   string
	InStock bool
	TagSlug string
}

// 商品の永続化だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)

	// 税率・在庫・購入上限込みのスナップショット取得
	FindForCart(ctx context.Context, id int64) (ProductForCart, error)

	// カート表示用メタの取得
	FindMeta(ctx context.Context, id int64) (ProductMeta, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	SetInStock(ctx context.Context, id int64, inStock bool) error
	AddSales(ctx context.Context, id int64, qty int64) error
}
