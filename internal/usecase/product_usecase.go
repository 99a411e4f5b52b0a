package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "sales":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Category: in.Category,
		Brand:    in.Brand,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductBySlug(ctx context.Context, slug string) (model.Product, error) {
	if strings.TrimSpace(slug) == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	p, err := u.productRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

type AdminProductInput struct {
	Name         string
	Slug         string
	Description  string
	Image        string
	SellingPrice float64
	CostPrice    float64
	TaxClassID   int64
	LimitPerUser int64
	TagSlug      string
	BrandID      *int64
	CategoryIDs  []int64
	Stock        int64
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, in AdminProductInput) (int64, error) {
	if err := validateProductInput(in); err != nil {
		return 0, err
	}

	categories := make([]model.Category, len(in.CategoryIDs))
	for i, id := range in.CategoryIDs {
		categories[i] = model.Category{ID: id}
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		Name:         strings.TrimSpace(in.Name),
		Slug:         strings.TrimSpace(in.Slug),
		Description:  in.Description,
		Image:        in.Image,
		SellingPrice: in.SellingPrice,
		CostPrice:    in.CostPrice,
		TaxClassID:   in.TaxClassID,
		LimitPerUser: in.LimitPerUser,
		TagSlug:      in.TagSlug,
		BrandID:      in.BrandID,
		Categories:   categories,
		InStock:      in.Stock > 0,
		Inventory:    model.Inventory{Quantity: in.Stock},
	})
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p.ID, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, productID int64, in AdminProductInput) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return err
	}

	categories := make([]model.Category, len(in.CategoryIDs))
	for i, id := range in.CategoryIDs {
		categories[i] = model.Category{ID: id}
	}

	err := u.productRepo.Update(ctx, model.Product{
		ID:           productID,
		Name:         strings.TrimSpace(in.Name),
		Slug:         strings.TrimSpace(in.Slug),
		Description:  in.Description,
		Image:        in.Image,
		SellingPrice: in.SellingPrice,
		CostPrice:    in.CostPrice,
		TaxClassID:   in.TaxClassID,
		LimitPerUser: in.LimitPerUser,
		TagSlug:      in.TagSlug,
		BrandID:      in.BrandID,
		Categories:   categories,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 在庫の現在値を設定し、in_stockフラグも合わせる
func (u *ProductUsecase) AdminSetStock(ctx context.Context, productID int64, newStock int64) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}

	if _, err := u.productRepo.FindByID(ctx, productID); errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	} else if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.inventoryRepo.SetStock(ctx, productID, newStock); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.productRepo.SetInStock(ctx, productID, newStock > 0); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func validateProductInput(in AdminProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return NewHTTPError(http.StatusBadRequest, "slug required")
	}
	if in.SellingPrice < 0 {
		return NewHTTPError(http.StatusBadRequest, "selling_price must be >= 0")
	}
	if in.TaxClassID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "tax_class_id required")
	}
	if in.LimitPerUser < 0 {
		return NewHTTPError(http.StatusBadRequest, "limit_per_user must be >= 0")
	}
	if in.Stock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	return nil
}
