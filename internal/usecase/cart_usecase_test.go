package usecase_test

import (
	"context"
	"testing"

	"pharmacy/internal/config"
	"pharmacy/internal/domain/model"
	"pharmacy/internal/infra/cache"
	repo "pharmacy/internal/repository"
	"pharmacy/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) FindByID(ctx context.Context, id string) (model.Cart, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	args := m.Called(ctx, cart)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) UpdateCAS(ctx context.Context, cart model.Cart) (model.Cart, error) {
	args := m.Called(ctx, cart)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type CartProductRepoMock struct{ mock.Mock }

func (m *CartProductRepoMock) FindForCart(ctx context.Context, id int64) (repo.ProductForCart, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(repo.ProductForCart)
	return p, args.Error(1)
}

func (m *CartProductRepoMock) FindMeta(ctx context.Context, id int64) (repo.ProductMeta, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(repo.ProductMeta)
	return p, args.Error(1)
}

func (m *CartProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used in CartUsecase tests")
}
func (m *CartProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	panic("not used in CartUsecase tests")
}
func (m *CartProductRepoMock) SetInStock(ctx context.Context, id int64, inStock bool) error {
	panic("not used in CartUsecase tests")
}
func (m *CartProductRepoMock) AddSales(ctx context.Context, id int64, qty int64) error {
	panic("not used in CartUsecase tests")
}

type CartCategoryRepoMock struct{ mock.Mock }

func (m *CartCategoryRepoMock) ListProductIDsInCategories(ctx context.Context, slugs []string, candidateIDs []int64) ([]int64, error) {
	args := m.Called(ctx, slugs, candidateIDs)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *CartCategoryRepoMock) List(ctx context.Context) ([]model.Category, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartCategoryRepoMock) FindByID(ctx context.Context, id int64) (model.Category, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartCategoryRepoMock) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartCategoryRepoMock) Create(ctx context.Context, c model.Category) (model.Category, error) {
	panic("not used in CartUsecase tests")
}
func (m *CartCategoryRepoMock) Update(ctx context.Context, c model.Category) error {
	panic("not used in CartUsecase tests")
}
func (m *CartCategoryRepoMock) SoftDelete(ctx context.Context, id int64) error {
	panic("not used in CartUsecase tests")
}

// キャッシュは常にミスするスタブ
type NoopCacheMock struct{}

func (NoopCacheMock) Get(ctx context.Context, cartID string, dest any) error {
	return cache.ErrCacheMiss
}
func (NoopCacheMock) Set(ctx context.Context, cartID string, view any) error { return nil }
func (NoopCacheMock) Delete(ctx context.Context, cartID string) error        { return nil }

var testRules = []config.RestrictionRule{
	{Name: "single-category", Slugs: []string{"2-diarrhoea"}},
	{Name: "restricted-group", Slugs: []string{"opiod-analgesics", "sleeping-tablets", "paracetamol"}},
}

func newCartUsecase(carts *CartRepoMock, products *CartProductRepoMock, categories *CartCategoryRepoMock) *usecase.CartUsecase {
	policy := usecase.NewRestrictionPolicy(categories, testRules)
	return usecase.NewCartUsecase(carts, products, policy, NoopCacheMock{})
}

// 規制ルールに一致しないことにする
func allowAll(categories *CartCategoryRepoMock) {
	categories.On("ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything).
		Return([]int64{}, nil)
}

func assertErrContains(t *testing.T, err error, substr string) {
	t.Helper()
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), substr)
	}
}

// =====================
// AddOrUpdate
// =====================

func TestCartUsecase_AddOrUpdate_InvalidQuantity(t *testing.T) {
	uc := newCartUsecase(new(CartRepoMock), new(CartProductRepoMock), new(CartCategoryRepoMock))

	_, err := uc.AddOrUpdate(context.Background(), usecase.AddOrUpdateCartInput{ProductID: 1, Quantity: 0})
	assertErrContains(t, err, "invalid quantity")
}

func TestCartUsecase_AddOrUpdate_ProductNotFound(t *testing.T) {
	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	uc := newCartUsecase(carts, products, new(CartCategoryRepoMock))

	products.On("FindForCart", mock.Anything, int64(9)).Return(repo.ProductForCart{}, repo.ErrNotFound)

	_, err := uc.AddOrUpdate(context.Background(), usecase.AddOrUpdateCartInput{ProductID: 9, Quantity: 1})
	assertErrContains(t, err, "product not found")
}

func TestCartUsecase_AddOrUpdate_CreatesCartWithTaxedPrice(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	// 税抜10.00・税率20% → 税込12.00
	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, SellingPrice: 10.00, TaxRate: 20, AvailableQuantity: 10,
	}, nil)
	allowAll(categories)

	carts.On("Create", mock.Anything, mock.MatchedBy(func(c model.Cart) bool {
		return len(c.Products) == 1 &&
			c.Products[0].Price == 12.00 &&
			c.Products[0].Quantity == 2 &&
			c.TotalAmount == 24.00
	})).Return(model.Cart{ID: "c1", Version: 1}, nil)

	got, err := uc.AddOrUpdate(ctx, usecase.AddOrUpdateCartInput{ProductID: 1, Quantity: 2})
	assert.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	carts.AssertExpectations(t)
}

func TestCartUsecase_AddOrUpdate_ClampsToInventory(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, SellingPrice: 5.00, TaxRate: 0, AvailableQuantity: 3,
	}, nil)
	allowAll(categories)

	// 5個頼んでも在庫の3個まで
	carts.On("Create", mock.Anything, mock.MatchedBy(func(c model.Cart) bool {
		return c.Products[0].Quantity == 3
	})).Return(model.Cart{ID: "c1"}, nil)

	_, err := uc.AddOrUpdate(ctx, usecase.AddOrUpdateCartInput{ProductID: 1, Quantity: 5})
	assert.NoError(t, err)

	carts.AssertExpectations(t)
}

func TestCartUsecase_AddOrUpdate_ClampsToLimitPerUserOnMerge(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, SellingPrice: 10.00, TaxRate: 20, AvailableQuantity: 100, LimitPerUser: 3,
	}, nil)
	allowAll(categories)

	// 既に2個。さらに5個足しても上限の3個で止まる。
	existing := model.Cart{
		ID:      "c1",
		Version: 4,
		Products: []model.CartLine{
			{ProductID: 1, Quantity: 2, Price: 12.00},
		},
		TotalAmount: 24.00,
	}
	carts.On("FindByID", mock.Anything, "c1").Return(existing, nil)

	carts.On("UpdateCAS", mock.Anything, mock.MatchedBy(func(c model.Cart) bool {
		return c.Version == 4 &&
			c.Products[0].Quantity == 3 &&
			c.TotalAmount == 36.00
	})).Return(model.Cart{ID: "c1", Version: 5}, nil)

	got, err := uc.AddOrUpdate(ctx, usecase.AddOrUpdateCartInput{CartID: "c1", ProductID: 1, Quantity: 5})
	assert.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)

	carts.AssertExpectations(t)
}

func TestCartUsecase_AddOrUpdate_OutOfStock(t *testing.T) {
	products := new(CartProductRepoMock)
	uc := newCartUsecase(new(CartRepoMock), products, new(CartCategoryRepoMock))

	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, SellingPrice: 5.00, AvailableQuantity: 0,
	}, nil)

	_, err := uc.AddOrUpdate(context.Background(), usecase.AddOrUpdateCartInput{ProductID: 1, Quantity: 1})
	assertErrContains(t, err, "out of stock")
}

func TestCartUsecase_AddOrUpdate_RejectsTwoRestrictedProducts(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	products.On("FindForCart", mock.Anything, int64(2)).Return(repo.ProductForCart{
		ID: 2, SellingPrice: 8.00, TaxRate: 0, AvailableQuantity: 10,
	}, nil)

	existing := model.Cart{
		ID:      "c1",
		Version: 1,
		Products: []model.CartLine{
			{ProductID: 1, Quantity: 1, Price: 9.00},
		},
		TotalAmount: 9.00,
	}
	carts.On("FindByID", mock.Anything, "c1").Return(existing, nil)

	// 1も2も規制グループに属する → 2商品でアウト
	categories.On("ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything).
		Return([]int64{1, 2}, nil)

	_, err := uc.AddOrUpdate(ctx, usecase.AddOrUpdateCartInput{CartID: "c1", ProductID: 2, Quantity: 1})
	assertErrContains(t, err, "cannot add more than 1 item from these categories")

	carts.AssertNotCalled(t, "UpdateCAS", mock.Anything, mock.Anything)
}

func TestCartUsecase_AddOrUpdate_RejectsRestrictedQuantityAboveOne(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, SellingPrice: 8.00, TaxRate: 0, AvailableQuantity: 10,
	}, nil)

	// 規制対象1商品でも数量2は不可
	categories.On("ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything).
		Return([]int64{1}, nil).Once()
	categories.On("ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything).
		Return([]int64{}, nil)

	_, err := uc.AddOrUpdate(ctx, usecase.AddOrUpdateCartInput{ProductID: 1, Quantity: 2})
	assertErrContains(t, err, "cannot add more than 1 item from these categories")

	carts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCartUsecase_AddOrUpdate_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, SellingPrice: 10.00, TaxRate: 0, AvailableQuantity: 10,
	}, nil)
	allowAll(categories)

	existing := model.Cart{ID: "c1", Version: 1, Products: []model.CartLine{}}
	carts.On("FindByID", mock.Anything, "c1").Return(existing, nil)

	// 1回目は競合、2回目で成功
	carts.On("UpdateCAS", mock.Anything, mock.Anything).Return(model.Cart{}, repo.ErrVersionConflict).Once()
	carts.On("UpdateCAS", mock.Anything, mock.Anything).Return(model.Cart{ID: "c1", Version: 2}, nil).Once()

	got, err := uc.AddOrUpdate(ctx, usecase.AddOrUpdateCartInput{CartID: "c1", ProductID: 1, Quantity: 1})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)

	carts.AssertExpectations(t)
}

func TestCartUsecase_AddOrUpdate_ConflictAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, SellingPrice: 10.00, TaxRate: 0, AvailableQuantity: 10,
	}, nil)
	allowAll(categories)

	carts.On("FindByID", mock.Anything, "c1").Return(model.Cart{ID: "c1", Version: 1}, nil)
	carts.On("UpdateCAS", mock.Anything, mock.Anything).Return(model.Cart{}, repo.ErrVersionConflict)

	_, err := uc.AddOrUpdate(ctx, usecase.AddOrUpdateCartInput{CartID: "c1", ProductID: 1, Quantity: 1})
	assertErrContains(t, err, "modified concurrently")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)

	carts.AssertNumberOfCalls(t, "UpdateCAS", 3)
}

// =====================
// RemoveLine
// =====================

func TestCartUsecase_RemoveLine_RecomputesTotal(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, new(CartProductRepoMock), categories)

	existing := model.Cart{
		ID:      "c1",
		Version: 2,
		Products: []model.CartLine{
			{ProductID: 1, Quantity: 2, Price: 5.00},
			{ProductID: 2, Quantity: 1, Price: 10.00},
		},
		TotalAmount: 20.00,
	}
	carts.On("FindByID", mock.Anything, "c1").Return(existing, nil)

	carts.On("UpdateCAS", mock.Anything, mock.MatchedBy(func(c model.Cart) bool {
		return len(c.Products) == 1 &&
			c.Products[0].ProductID == 2 &&
			c.TotalAmount == 10.00
	})).Return(model.Cart{ID: "c1", Version: 3}, nil)

	_, err := uc.RemoveLine(ctx, "c1", 1)
	assert.NoError(t, err)

	// 削除では規制判定しない
	categories.AssertNotCalled(t, "ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything)
	carts.AssertExpectations(t)
}

func TestCartUsecase_RemoveLine_NotFoundWhenLineMissing(t *testing.T) {
	carts := new(CartRepoMock)
	uc := newCartUsecase(carts, new(CartProductRepoMock), new(CartCategoryRepoMock))

	carts.On("FindByID", mock.Anything, "c1").Return(model.Cart{ID: "c1", Version: 1}, nil)

	_, err := uc.RemoveLine(context.Background(), "c1", 42)
	assertErrContains(t, err, "not found")
}

// =====================
// UpdateQuantity
// =====================

func TestCartUsecase_UpdateQuantity_ProductNotInCart(t *testing.T) {
	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	uc := newCartUsecase(carts, products, new(CartCategoryRepoMock))

	products.On("FindForCart", mock.Anything, int64(7)).Return(repo.ProductForCart{
		ID: 7, AvailableQuantity: 10,
	}, nil)
	carts.On("FindByID", mock.Anything, "c1").Return(model.Cart{ID: "c1", Version: 1}, nil)

	err := uc.UpdateQuantity(context.Background(), "c1", 7, 2)
	assertErrContains(t, err, "product not in cart")
}

func TestCartUsecase_UpdateQuantity_ClampsToInventoryOnly(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	categories := new(CartCategoryRepoMock)
	uc := newCartUsecase(carts, products, categories)

	// 購入上限があっても数量変更では在庫だけで丸める
	products.On("FindForCart", mock.Anything, int64(1)).Return(repo.ProductForCart{
		ID: 1, AvailableQuantity: 4, LimitPerUser: 2,
	}, nil)

	existing := model.Cart{
		ID:      "c1",
		Version: 1,
		Products: []model.CartLine{
			{ProductID: 1, Quantity: 1, Price: 5.00},
		},
		TotalAmount: 5.00,
	}
	carts.On("FindByID", mock.Anything, "c1").Return(existing, nil)

	carts.On("UpdateCAS", mock.Anything, mock.MatchedBy(func(c model.Cart) bool {
		return c.Products[0].Quantity == 4 && c.TotalAmount == 20.00
	})).Return(model.Cart{ID: "c1", Version: 2}, nil)

	err := uc.UpdateQuantity(ctx, "c1", 1, 10)
	assert.NoError(t, err)

	categories.AssertNotCalled(t, "ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything)
	carts.AssertExpectations(t)
}

// =====================
// FindCart
// =====================

func TestCartUsecase_FindCart_NilOnBlankID(t *testing.T) {
	uc := newCartUsecase(new(CartRepoMock), new(CartProductRepoMock), new(CartCategoryRepoMock))

	view, err := uc.FindCart(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, view)
}

func TestCartUsecase_FindCart_NilWhenMissing(t *testing.T) {
	carts := new(CartRepoMock)
	uc := newCartUsecase(carts, new(CartProductRepoMock), new(CartCategoryRepoMock))

	carts.On("FindByID", mock.Anything, "gone").Return(model.Cart{}, repo.ErrNotFound)

	view, err := uc.FindCart(context.Background(), "gone")
	assert.NoError(t, err)
	assert.Nil(t, view)
}

func TestCartUsecase_FindCart_HydratesProductMeta(t *testing.T) {
	ctx := context.Background()

	carts := new(CartRepoMock)
	products := new(CartProductRepoMock)
	uc := newCartUsecase(carts, products, new(CartCategoryRepoMock))

	cart := model.Cart{
		ID:         "c1",
		CustomerID: "u1",
		Products: []model.CartLine{
			{ProductID: 1, Quantity: 2, Price: 12.00},
			{ProductID: 2, Quantity: 1, Price: 8.00},
		},
		TotalAmount: 32.00,
	}
	carts.On("FindByID", mock.Anything, "c1").Return(cart, nil)

	products.On("FindMeta", mock.Anything, int64(1)).Return(repo.ProductMeta{
		ID: 1, Name: "Ibuprofen", Slug: "ibuprofen", InStock: true,
	}, nil)
	// 2は削除済み商品 → 表示から外す
	products.On("FindMeta", mock.Anything, int64(2)).Return(repo.ProductMeta{}, repo.ErrNotFound)

	view, err := uc.FindCart(ctx, "c1")
	assert.NoError(t, err)
	assert.NotNil(t, view)
	assert.Equal(t, 1, len(view.Products))
	assert.Equal(t, "Ibuprofen", view.Products[0].Name)
	assert.Equal(t, 32.00, view.TotalAmount)
}
