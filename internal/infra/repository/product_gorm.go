package repository

import (
	"context"
	"errors"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 公開商品の一覧（検索・価格帯・ソート・ページング）
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Product{})

	if q.Q != "" {
		tx = tx.Where("name ILIKE ?", "%"+q.Q+"%")
	}
	if q.Category != "" {
		tx = tx.Joins("join product_categories pc on pc.product_id = products.id").
			Joins("join categories c on c.id = pc.category_id").
			Where("c.slug = ?", q.Category)
	}
	if q.Brand != "" {
		tx = tx.Joins("join brands b on b.id = products.brand_id").
			Where("b.slug = ?", q.Brand)
	}
	if q.MinPrice != nil {
		tx = tx.Where("selling_price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("selling_price <= ?", *q.MaxPrice)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.Sort {
	case "price_asc":
		tx = tx.Order("selling_price asc")
	case "price_desc":
		tx = tx.Order("selling_price desc")
	case "sales":
		tx = tx.Order("sales desc")
	default:
		tx = tx.Order("products.id desc")
	}

	offset := (q.Page - 1) * q.Limit

	var products []model.Product
	err := tx.
		Preload("TaxClass").
		Preload("Inventory").
		Limit(q.Limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product

	err := r.db.WithContext(ctx).
		Preload("TaxClass").
		Preload("Inventory").
		Preload("Categories").
		Where("id = ?", id).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductGormRepository) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	var p model.Product

	err := r.db.WithContext(ctx).
		Preload("TaxClass").
		Preload("Inventory").
		Preload("Categories").
		Where("slug = ?", slug).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// カート計算用スナップショット。税率と在庫もまとめて1回で読む。
func (r *ProductGormRepository) FindForCart(ctx context.Context, id int64) (repo.ProductForCart, error) {
	var p model.Product

	err := r.db.WithContext(ctx).
		Preload("TaxClass").
		Preload("Inventory").
		Where("id = ?", id).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ProductForCart{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.ProductForCart{}, err
	}

	return repo.ProductForCart{
		ID:                p.ID,
		Name:              p.Name,
		SellingPrice:      p.SellingPrice,
		TaxRate:           p.TaxClass.Rate,
		AvailableQuantity: p.Inventory.Quantity,
		LimitPerUser:      p.LimitPerUser,
	}, nil
}

// カート表示用メタ
func (r *ProductGormRepository) FindMeta(ctx context.Context, id int64) (repo.ProductMeta, error) {
	var p model.Product

	err := r.db.WithContext(ctx).
		Select("id", "name", "slug", "image", "in_stock", "tag_slug").
		Where("id = ?", id).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ProductMeta{}, repo.ErrNotFound
	}
	if err != nil {
		return repo.ProductMeta{}, err
	}

	return repo.ProductMeta{
		ID:      p.ID,
		Name:    p.Name,
		Slug:    p.Slug,
		Image:   p.Image,
		InStock: p.InStock,
		TagSlug: p.TagSlug,
	}, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", p.ID).
		Updates(&p)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) SetInStock(ctx context.Context, id int64, inStock bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("in_stock", inStock)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 販売数の加算（注文確定時）
func (r *ProductGormRepository) AddSales(ctx context.Context, id int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("sales", gorm.Expr("sales + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
