package usecase_test

import (
	"context"
	"testing"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"
	"pharmacy/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type ProdProductRepoMock struct{ mock.Mock }

func (m *ProdProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProdProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProdProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProdProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProdProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProdProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProdProductRepoMock) SetInStock(ctx context.Context, id int64, inStock bool) error {
	args := m.Called(ctx, id, inStock)
	return args.Error(0)
}

func (m *ProdProductRepoMock) AddSales(ctx context.Context, id int64, qty int64) error {
	panic("not used in ProductUsecase tests")
}

func (m *ProdProductRepoMock) FindForCart(ctx context.Context, id int64) (repo.ProductForCart, error) {
	panic("not used in ProductUsecase tests")
}

func (m *ProdProductRepoMock) FindMeta(ctx context.Context, id int64) (repo.ProductMeta, error) {
	panic("not used in ProductUsecase tests")
}

type ProdInventoryRepoMock struct{ mock.Mock }

func (m *ProdInventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	args := m.Called(ctx, productID, newStock)
	return args.Error(0)
}

func (m *ProdInventoryRepoMock) Decrease(ctx context.Context, productID int64, qty int64) (int64, error) {
	panic("not used in ProductUsecase tests")
}

func (m *ProdInventoryRepoMock) Increase(ctx context.Context, productID int64, qty int64) error {
	panic("not used in ProductUsecase tests")
}

// =====================
// Public: List / Detail
// =====================

func TestProductUsecase_ListPublicProducts_InvalidPage(t *testing.T) {
	uc := usecase.NewProductUsecase(new(ProdProductRepoMock), new(ProdInventoryRepoMock))

	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")
}

func TestProductUsecase_ListPublicProducts_InvalidLimit(t *testing.T) {
	uc := usecase.NewProductUsecase(new(ProdProductRepoMock), new(ProdInventoryRepoMock))

	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 1, Limit: 101})
	assertErrContains(t, err, "invalid limit")
}

func TestProductUsecase_ListPublicProducts_Success(t *testing.T) {
	ctx := context.Background()

	pRepo := new(ProdProductRepoMock)
	uc := usecase.NewProductUsecase(pRepo, new(ProdInventoryRepoMock))

	in := usecase.ListProductsInput{Page: 1, Limit: 20, Q: "ibuprofen", Sort: "new"}
	q := repo.ProductListQuery{Page: 1, Limit: 20, Q: "ibuprofen", Sort: "new"}

	items := []model.Product{
		{ID: 1, Name: "Ibuprofen", Slug: "ibuprofen"},
	}
	pRepo.On("ListPublic", mock.Anything, q).Return(items, int64(1), nil)

	out, err := uc.ListPublicProducts(ctx, in)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, 1, len(out.Items))

	pRepo.AssertExpectations(t)
}

func TestProductUsecase_GetProductBySlug_NotFound(t *testing.T) {
	pRepo := new(ProdProductRepoMock)
	uc := usecase.NewProductUsecase(pRepo, new(ProdInventoryRepoMock))

	pRepo.On("FindBySlug", mock.Anything, "gone").Return(model.Product{}, repo.ErrNotFound)

	_, err := uc.GetProductBySlug(context.Background(), "gone")
	assertErrContains(t, err, "not found")
}

// =====================
// Admin
// =====================

func TestProductUsecase_AdminCreateProduct_NameRequired(t *testing.T) {
	uc := usecase.NewProductUsecase(new(ProdProductRepoMock), new(ProdInventoryRepoMock))

	_, err := uc.AdminCreateProduct(context.Background(), usecase.AdminProductInput{
		Slug: "x", TaxClassID: 1,
	})
	assertErrContains(t, err, "name required")
}

func TestProductUsecase_AdminCreateProduct_Success(t *testing.T) {
	ctx := context.Background()

	pRepo := new(ProdProductRepoMock)
	uc := usecase.NewProductUsecase(pRepo, new(ProdInventoryRepoMock))

	pRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.Name == "Ibuprofen" &&
			p.Slug == "ibuprofen" &&
			p.InStock &&
			p.Inventory.Quantity == 10
	})).Return(model.Product{ID: 5}, nil)

	id, err := uc.AdminCreateProduct(ctx, usecase.AdminProductInput{
		Name:         "Ibuprofen",
		Slug:         "ibuprofen",
		SellingPrice: 4.99,
		TaxClassID:   1,
		Stock:        10,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), id)

	pRepo.AssertExpectations(t)
}

func TestProductUsecase_AdminSetStock_FlipsInStock(t *testing.T) {
	ctx := context.Background()

	pRepo := new(ProdProductRepoMock)
	iRepo := new(ProdInventoryRepoMock)
	uc := usecase.NewProductUsecase(pRepo, iRepo)

	pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1}, nil)
	iRepo.On("SetStock", mock.Anything, int64(1), int64(0)).Return(nil)
	pRepo.On("SetInStock", mock.Anything, int64(1), false).Return(nil)

	err := uc.AdminSetStock(ctx, 1, 0)
	assert.NoError(t, err)

	pRepo.AssertExpectations(t)
	iRepo.AssertExpectations(t)
}

func TestProductUsecase_AdminSetStock_NegativeRejected(t *testing.T) {
	uc := usecase.NewProductUsecase(new(ProdProductRepoMock), new(ProdInventoryRepoMock))

	err := uc.AdminSetStock(context.Background(), 1, -1)
	assertErrContains(t, err, "stock must be >= 0")
}
