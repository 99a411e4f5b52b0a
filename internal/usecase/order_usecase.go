package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pharmacy/internal/domain/model"
	"pharmacy/internal/infra/notify"
	repo "pharmacy/internal/repository"

	"github.com/google/uuid"
)

// 決済ゲートウェイが報告する決済ステータス
const (
	paymentStatusSucceeded  = "succeeded"
	paymentStatusProcessing = "processing"
	paymentStatusCanceled   = "canceled"
)

// 決済Webhookから渡される確定イベント
type PaymentEventInput struct {
	PaymentIntentID string
	CartID          string
	CustomerEmail   string
	PaymentStatus   string
	AmountTotal     int64 // 最小通貨単位（セント）
	Address         model.Address
}

type OrderLineOutput struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	OrderNumber string            `json:"order_number"`
	CartID      string            `json:"cart_id"`
	Status      model.OrderStatus `json:"status"`
	TotalAmount float64           `json:"total_amount"`
	CreatedAt   string            `json:"created_at"`
}

type OrderDetailOutput struct {
	OrderOutput
	CustomerEmail string               `json:"customer_email"`
	Address       model.Address        `json:"address"`
	Lines         []OrderLineOutput    `json:"lines"`
	Transaction   *model.Transaction   `json:"transaction,omitempty"`
	FormMetaData  []model.FormMetaData `json:"form_meta_data,omitempty"`
}

// 通知1件あたりの猶予
const notifyTimeout = 10 * time.Second

// OrderUsecase は決済完了イベントからの注文確定と、管理側の注文操作を持ちます。
type OrderUsecase struct {
	txm          repo.TransactionManager
	orders       repo.OrderRepository
	orderLines   repo.OrderLineRepository
	transactions repo.TransactionRepository
	formMeta     repo.FormMetaRepository
	carts        repo.CartRepository
	customers    repo.CustomerRepository
	products     repo.ProductRepository
	notifiers    []notify.OrderNotifier
}

func NewOrderUsecase(
	txm repo.TransactionManager,
	orders repo.OrderRepository,
	orderLines repo.OrderLineRepository,
	transactions repo.TransactionRepository,
	formMeta repo.FormMetaRepository,
	carts repo.CartRepository,
	customers repo.CustomerRepository,
	products repo.ProductRepository,
	notifiers ...notify.OrderNotifier,
) *OrderUsecase {
	return &OrderUsecase{
		txm:          txm,
		orders:       orders,
		orderLines:   orderLines,
		transactions: transactions,
		formMeta:     formMeta,
		carts:        carts,
		customers:    customers,
		products:     products,
		notifiers:    notifiers,
	}
}

// FinalizeFromPayment は確定済み決済イベントを注文として永続化する。
// 同じpaymentIntentIdの再配送では新しい注文を作らず既存を返す。
func (u *OrderUsecase) FinalizeFromPayment(ctx context.Context, in PaymentEventInput) (model.Order, error) {
	if in.PaymentIntentID == "" || in.CartID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid payment event")
	}
	if in.CustomerEmail == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if in.Address.Line1 == "" || in.Address.City == "" || in.Address.Country == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid shipping address")
	}

	// 冪等チェック。既に処理済みならそれを返す。
	if existing, found, err := u.orders.FindByPaymentIntentID(ctx, in.PaymentIntentID); err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	} else if found {
		slog.Info("payment event redelivered, returning existing order",
			"payment_intent_id", in.PaymentIntentID, "order_id", existing.ID)
		return existing, nil
	}

	// カートが無いのは復旧不能。リトライさせない。
	cart, err := u.carts.FindByID(ctx, in.CartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cart.Products) == 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	order := model.Order{
		OrderNumber:     newOrderNumber(),
		PaymentIntentID: in.PaymentIntentID,
		CartID:          in.CartID,
		Status:          orderStatusFor(in.PaymentStatus, cart.Products),
		TotalAmount:     float64(in.AmountTotal) / 100,
		Address:         in.Address,
	}

	// 注文・明細・フォーム回答・決済記録・在庫減算を1トランザクションで書く
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		customer, err := r.Customers().UpsertByEmail(ctx, in.CustomerEmail, in.Address)
		if err != nil {
			return err
		}
		order.CustomerID = customer.ID

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID

		lines := make([]model.OrderLine, 0, len(cart.Products))
		metas := make([]model.FormMetaData, 0)
		for _, l := range cart.Products {
			lines = append(lines, model.OrderLine{
				OrderID:   orderID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Price:     l.Price,
			})
			if l.FormMetaData != nil {
				raw, err := json.Marshal(l.FormMetaData.Value)
				if err != nil {
					return err
				}
				metas = append(metas, model.FormMetaData{
					OrderID:   orderID,
					ProductID: l.ProductID,
					TagSlug:   l.FormMetaData.TagSlug,
					ValueJSON: string(raw),
				})
			}
		}

		if err := r.OrderLines().CreateBulk(ctx, orderID, lines); err != nil {
			return err
		}
		if len(metas) > 0 {
			if err := r.FormMeta().CreateBulk(ctx, metas); err != nil {
				return err
			}
		}

		if _, err := r.Transactions().Create(ctx, model.Transaction{
			OrderID:    orderID,
			CustomerID: cart.CustomerID,
			Amount:     order.TotalAmount,
			Status:     transactionStatusFor(in.PaymentStatus),
			Address:    in.Address,
		}); err != nil {
			return err
		}

		// 決済は済んでいるので在庫は拒まずに減らす
		for _, l := range cart.Products {
			remaining, err := r.Inventory().Decrease(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			if remaining <= 0 {
				if err := r.Products().SetInStock(ctx, l.ProductID, false); err != nil {
					return err
				}
			}
			if err := r.Products().AddSales(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		// 同一paymentIntentIdの同時配送でunique制約に当たった場合は読み直す
		if existing, found, ferr := u.orders.FindByPaymentIntentID(ctx, in.PaymentIntentID); ferr == nil && found {
			slog.Info("concurrent payment event lost the race, returning existing order",
				"payment_intent_id", in.PaymentIntentID, "order_id", existing.ID)
			return existing, nil
		}
		slog.Error("order finalization failed", "payment_intent_id", in.PaymentIntentID, "error", err)
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// カート削除は結果整合でよい。失敗しても注文は成立している。
	if err := u.carts.Delete(ctx, in.CartID); err != nil {
		slog.Warn("cart delete after finalization failed", "cart_id", in.CartID, "error", err)
	}

	u.notifyAsync(order, cart, in.CustomerEmail)

	return order, nil
}

// 通知は投げっぱなし。失敗はログのみ。
func (u *OrderUsecase) notifyAsync(order model.Order, cart model.Cart, email string) {
	if len(u.notifiers) == 0 {
		return
	}

	lines := make([]notify.OrderNoticeLine, len(cart.Products))
	for i, l := range cart.Products {
		lines[i] = notify.OrderNoticeLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
		}
	}
	notice := notify.OrderNotice{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: email,
		TotalAmount:   order.TotalAmount,
		Lines:         lines,
		Address:       order.Address,
	}

	for _, n := range u.notifiers {
		go func(n notify.OrderNotifier) {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := n.NotifyOrderCreated(ctx, notice); err != nil {
				slog.Warn("order notification failed", "order_id", notice.OrderID, "error", err)
			}
		}(n)
	}
}

// UpdateStatus は管理側の承認/却下。承認はPROCESSINGとして保存する。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	var next model.OrderStatus
	switch status {
	case model.OrderStatusApproved:
		next = model.OrderStatusProcessing
	case model.OrderStatusReject:
		next = model.OrderStatusReject
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid status transition")
	}

	if _, err := u.orders.FindByID(ctx, orderID); errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	} else if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.orders.UpdateStatus(ctx, orderID, next); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// GetByCartID は購入完了画面用。カートIDから注文を引く。
func (u *OrderUsecase) GetByCartID(ctx context.Context, cartID string) (OrderDetailOutput, error) {
	if cartID == "" {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid cart_id")
	}

	order, err := u.orders.FindByCartID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildDetail(ctx, order)
}

func (u *OrderUsecase) Get(ctx context.Context, orderID int64) (OrderDetailOutput, error) {
	order, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildDetail(ctx, order)
}

func (u *OrderUsecase) List(ctx context.Context, f repo.OrderListFilter) ([]OrderOutput, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return nil, 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]OrderOutput, len(orders))
	for i, o := range orders {
		out[i] = toOrderOutput(o)
	}
	return out, total, nil
}

func (u *OrderUsecase) buildDetail(ctx context.Context, order model.Order) (OrderDetailOutput, error) {
	detail := OrderDetailOutput{
		OrderOutput: toOrderOutput(order),
		Address:     order.Address,
	}

	// 明細に商品名と画像を合成する
	lines, err := u.linesWithProduct(ctx, order.ID)
	if err != nil {
		return OrderDetailOutput{}, err
	}
	detail.Lines = lines

	if tx, err := u.transactions.FindByOrderID(ctx, order.ID); err == nil {
		detail.Transaction = &tx
	} else if !errors.Is(err, repo.ErrNotFound) {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metas, err := u.formMeta.ListByOrderID(ctx, order.ID)
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	detail.FormMetaData = metas

	if c, err := u.customers.FindByID(ctx, order.CustomerID); err == nil {
		detail.CustomerEmail = c.Email
	}

	return detail, nil
}

func (u *OrderUsecase) linesWithProduct(ctx context.Context, orderID int64) ([]OrderLineOutput, error) {
	lines, err := u.orderLines.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]OrderLineOutput, 0, len(lines))
	for _, l := range lines {
		o := OrderLineOutput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
		}
		if meta, err := u.products.FindMeta(ctx, l.ProductID); err == nil {
			o.Name = meta.Name
			o.Image = meta.Image
		}
		out = append(out, o)
	}
	return out, nil
}

func toOrderOutput(o model.Order) OrderOutput {
	return OrderOutput{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CartID:      o.CartID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// 表示用注文番号を採番する
func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

// フォーム回答付きの明細があれば承認待ち。それ以外は決済ステータスに従う。
func orderStatusFor(paymentStatus string, lines []model.CartLine) model.OrderStatus {
	for _, l := range lines {
		if l.FormMetaData != nil {
			return model.OrderStatusPending
		}
	}
	if paymentStatus == paymentStatusSucceeded {
		return model.OrderStatusProcessing
	}
	return model.OrderStatusPending
}

func transactionStatusFor(paymentStatus string) model.TransactionStatus {
	switch paymentStatus {
	case paymentStatusSucceeded:
		return model.TransactionStatusCompleted
	case paymentStatusProcessing:
		return model.TransactionStatusProcessing
	case paymentStatusCanceled:
		return model.TransactionStatusCancelled
	default:
		return model.TransactionStatusPending
	}
}
