package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pharmacy/internal/domain/model"
	"pharmacy/internal/infra/cache"
	"pharmacy/internal/pricing"
	repo "pharmacy/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// 同時更新でversionがずれたときの再適用回数
const casMaxAttempts = 3

// 規制違反時にUIへそのまま出すメッセージ
const restrictedMessage = "cannot add more than 1 item from these categories"

// CartUsecase はカート変更の業務ロジックです。
// 在庫と購入上限で数量を丸め、価格を再計算し、規制カテゴリを判定してから
// 1回のupsertで保存する。検証に落ちたら何も書かない。
type CartUsecase struct {
	carts       repo.CartRepository
	products    repo.ProductRepository
	restriction *RestrictionPolicy
	cache       cache.CartViewCache
	sfg         singleflight.Group
}

func NewCartUsecase(
	carts repo.CartRepository,
	products repo.ProductRepository,
	restriction *RestrictionPolicy,
	viewCache cache.CartViewCache,
) *CartUsecase {
	return &CartUsecase{
		carts:       carts,
		products:    products,
		restriction: restriction,
		cache:       viewCache,
	}
}

// 規制対象商品の質問フォーム回答
type CartMetaFormInput struct {
	TagSlug string
	Value   map[string]any
}

type AddOrUpdateCartInput struct {
	CartID    string // 空なら新規カートを作る
	ProductID int64
	Quantity  int64
	UserID    string // 認証済みユーザーID。空なら匿名IDを採番。
	MetaForm  *CartMetaFormInput
}

// 表示用に商品メタを合成したカート
type CartLineView struct {
	ProductID    int64               `json:"product_id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	Image        string              `json:"image"`
	InStock      bool                `json:"in_stock"`
	TagSlug      string              `json:"tag_slug,omitempty"`
	Quantity     int64               `json:"quantity"`
	Price        float64             `json:"price"`
	FormMetaData *model.CartFormMeta `json:"form_meta_data,omitempty"`
}

type CartView struct {
	ID          string         `json:"id"`
	CustomerID  string         `json:"customer_id"`
	Products    []CartLineView `json:"products"`
	TotalAmount float64        `json:"total_amount"`
}

// AddOrUpdate はカートへ商品を追加、既にあれば数量を加算する。
// 数量は在庫と購入上限で丸め、明細の単価はこの時点の税込価格で更新する。
func (u *CartUsecase) AddOrUpdate(ctx context.Context, in AddOrUpdateCartInput) (model.Cart, error) {
	if in.ProductID <= 0 {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	snap, err := u.products.FindForCart(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	price, err := pricing.PriceWithTax(snap.SellingPrice, snap.TaxRate)
	if err != nil {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}

	if in.CartID == "" {
		return u.createCart(ctx, in, snap, price)
	}

	// 既存カートはCASで更新。先を越されたら読み直して差分を当て直す。
	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		cart, err := u.carts.FindByID(ctx, in.CartID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := applyAddOrUpdate(&cart, in, snap, price); err != nil {
			return model.Cart{}, err
		}

		if err := u.checkRestrictions(ctx, cart.Products); err != nil {
			return model.Cart{}, err
		}

		updated, err := u.carts.UpdateCAS(ctx, cart)
		if errors.Is(err, repo.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.invalidateView(updated.ID)
		return updated, nil
	}

	return model.Cart{}, NewHTTPError(http.StatusConflict, "cart was modified concurrently, retry")
}

// 新規カート作成。1明細で始まる。
func (u *CartUsecase) createCart(ctx context.Context, in AddOrUpdateCartInput, snap repo.ProductForCart, price float64) (model.Cart, error) {
	customerID := in.UserID
	if customerID == "" {
		customerID = uuid.NewString()
	}

	qty, err := clampQuantity(in.Quantity, snap)
	if err != nil {
		return model.Cart{}, err
	}

	line := model.CartLine{
		ProductID:    in.ProductID,
		Quantity:     qty,
		Price:        price,
		FormMetaData: buildFormMeta(in.ProductID, in.MetaForm),
	}
	lines := []model.CartLine{line}

	if err := u.checkRestrictions(ctx, lines); err != nil {
		return model.Cart{}, err
	}

	cart := model.Cart{
		CustomerID:  customerID,
		Products:    lines,
		TotalAmount: cartTotal(lines),
	}

	created, err := u.carts.Create(ctx, cart)
	if err != nil {
		return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return created, nil
}

// 読み込んだカートへ追加/加算を適用する。保存はしない。
func applyAddOrUpdate(cart *model.Cart, in AddOrUpdateCartInput, snap repo.ProductForCart, price float64) error {
	idx := cart.LineIndex(in.ProductID)

	if idx < 0 {
		qty, err := clampQuantity(in.Quantity, snap)
		if err != nil {
			return err
		}
		cart.Products = append(cart.Products, model.CartLine{
			ProductID:    in.ProductID,
			Quantity:     qty,
			Price:        price,
			FormMetaData: buildFormMeta(in.ProductID, in.MetaForm),
		})
	} else {
		qty, err := clampQuantity(cart.Products[idx].Quantity+in.Quantity, snap)
		if err != nil {
			return err
		}

		line := &cart.Products[idx]
		line.Quantity = qty
		line.Price = price // 単価はこの時点の税込価格に更新（price-lock-on-add）

		// 新しい回答が来たときだけ差し替える
		if in.MetaForm != nil {
			line.FormMetaData = buildFormMeta(in.ProductID, in.MetaForm)
		}
	}

	cart.TotalAmount = cartTotal(cart.Products)
	return nil
}

// RemoveLine は明細を取り除く。削除で規制違反は起きないので再判定しない。
func (u *CartUsecase) RemoveLine(ctx context.Context, cartID string, productID int64) (model.Cart, error) {
	if cartID == "" {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid cart_id")
	}
	if productID <= 0 {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		cart, err := u.carts.FindByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		idx := cart.LineIndex(productID)
		if idx < 0 {
			return model.Cart{}, NewHTTPError(http.StatusNotFound, "not found")
		}

		cart.Products = append(cart.Products[:idx], cart.Products[idx+1:]...)
		cart.TotalAmount = cartTotal(cart.Products)

		updated, err := u.carts.UpdateCAS(ctx, cart)
		if errors.Is(err, repo.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.invalidateView(cartID)
		return updated, nil
	}

	return model.Cart{}, NewHTTPError(http.StatusConflict, "cart was modified concurrently, retry")
}

// UpdateQuantity は既存明細の数量だけを変える。
// 在庫で丸める。明細が無ければ追加はしない。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, cartID string, productID int64, quantity int64) error {
	if cartID == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid cart_id")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if quantity < 1 {
		return NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	snap, err := u.products.FindForCart(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for attempt := 0; attempt < casMaxAttempts; attempt++ {
		cart, err := u.carts.FindByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		idx := cart.LineIndex(productID)
		if idx < 0 {
			return NewHTTPError(http.StatusBadRequest, "product not in cart")
		}

		// 在庫より多くは持てない
		qty := quantity
		if qty > snap.AvailableQuantity {
			qty = snap.AvailableQuantity
		}
		if qty < 1 {
			return NewHTTPError(http.StatusBadRequest, "out of stock")
		}

		cart.Products[idx].Quantity = qty
		cart.TotalAmount = cartTotal(cart.Products)

		_, err = u.carts.UpdateCAS(ctx, cart)
		if errors.Is(err, repo.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.invalidateView(cartID)
		return nil
	}

	return NewHTTPError(http.StatusConflict, "cart was modified concurrently, retry")
}

// FindCart は表示用カートを返す。idが空や不明ならエラーではなくnil。
// 明細ごとに商品メタを合成し、結果はキャッシュする。
func (u *CartUsecase) FindCart(ctx context.Context, cartID string) (*CartView, error) {
	if cartID == "" {
		return nil, nil
	}

	// 同じカートへの同時読み込みをまとめる
	v, err, _ := u.sfg.Do(cartID, func() (any, error) {
		var cached CartView
		cacheErr := u.cache.Get(ctx, cartID, &cached)
		if cacheErr == nil {
			return &cached, nil
		}
		if !errors.Is(cacheErr, cache.ErrCacheMiss) {
			slog.Warn("cart view cache get failed", "cart_id", cartID, "error", cacheErr)
		}

		cart, err := u.carts.FindByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return (*CartView)(nil), nil
		}
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		view, err := u.buildCartView(ctx, cart)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := u.cache.Set(context.Background(), cartID, view); err != nil {
				slog.Warn("cart view cache set failed", "cart_id", cartID, "error", err)
			}
		}()

		return view, nil
	})

	if err != nil {
		return nil, err
	}
	return v.(*CartView), nil
}

// 明細に商品メタを合成する。消えた商品の行は表示から外す。
func (u *CartUsecase) buildCartView(ctx context.Context, cart model.Cart) (*CartView, error) {
	lines := make([]CartLineView, 0, len(cart.Products))

	for _, l := range cart.Products {
		meta, err := u.products.FindMeta(ctx, l.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		lines = append(lines, CartLineView{
			ProductID:    l.ProductID,
			Name:         meta.Name,
			Slug:         meta.Slug,
			Image:        meta.Image,
			InStock:      meta.InStock,
			TagSlug:      meta.TagSlug,
			Quantity:     l.Quantity,
			Price:        l.Price,
			FormMetaData: l.FormMetaData,
		})
	}

	return &CartView{
		ID:          cart.ID,
		CustomerID:  cart.CustomerID,
		Products:    lines,
		TotalAmount: cart.TotalAmount,
	}, nil
}

func (u *CartUsecase) checkRestrictions(ctx context.Context, lines []model.CartLine) error {
	violated, rule, err := u.restriction.Evaluate(ctx, lines)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if violated {
		slog.Info("cart mutation rejected by restriction rule", "rule", rule)
		return NewHTTPError(http.StatusBadRequest, restrictedMessage)
	}
	return nil
}

// 数量を在庫と購入上限で丸める。1点も持てないならエラー。
func clampQuantity(requested int64, snap repo.ProductForCart) (int64, error) {
	qty := requested
	if qty > snap.AvailableQuantity {
		qty = snap.AvailableQuantity
	}
	if snap.LimitPerUser > 0 && qty > snap.LimitPerUser {
		qty = snap.LimitPerUser
	}
	if qty < 1 {
		return 0, NewHTTPError(http.StatusBadRequest, "out of stock")
	}
	return qty, nil
}

func buildFormMeta(productID int64, in *CartMetaFormInput) *model.CartFormMeta {
	if in == nil {
		return nil
	}
	return &model.CartFormMeta{
		ProductID: productID,
		TagSlug:   in.TagSlug,
		Value:     in.Value,
	}
}

// totalAmountは必ず全明細から計算し直す
func cartTotal(lines []model.CartLine) float64 {
	prices := make([]float64, len(lines))
	quantities := make([]int64, len(lines))
	for i, l := range lines {
		prices[i] = l.Price
		quantities[i] = l.Quantity
	}
	return pricing.LinesTotal(prices, quantities)
}

// キャッシュ無効化。失敗しても処理は続ける。
func (u *CartUsecase) invalidateView(cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := u.cache.Delete(ctx, cartID); err != nil {
		slog.Warn("cart view cache invalidate failed", "cart_id", cartID, "error", err)
	}
}
