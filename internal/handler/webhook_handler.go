package handler

import (
	"net/http"

	"pharmacy/internal/domain/model"
	"pharmacy/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済ゲートウェイからの確定イベントを受ける。
// 署名検証は手前のゲートウェイアダプタ側で済んでいる前提。
type WebhookHandler struct {
	uc *usecase.OrderUsecase
}

// DI
func NewWebhookHandler(uc *usecase.OrderUsecase) *WebhookHandler {
	return &WebhookHandler{uc: uc}
}

type PaymentWebhookRequest struct {
	PaymentIntentID string        `json:"payment_intent_id"`
	CartID          string        `json:"cart_id"`
	CustomerEmail   string        `json:"customer_email"`
	Status          string        `json:"status"`
	AmountTotal     int64         `json:"amount_total"` // 最小通貨単位
	Address         model.Address `json:"address"`
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/payment", h.payment)
}

func (h *WebhookHandler) payment(c echo.Context) error {
	var req PaymentWebhookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	order, err := h.uc.FinalizeFromPayment(c.Request().Context(), usecase.PaymentEventInput{
		PaymentIntentID: req.PaymentIntentID,
		CartID:          req.CartID,
		CustomerEmail:   req.CustomerEmail,
		PaymentStatus:   req.Status,
		AmountTotal:     req.AmountTotal,
		Address:         req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
	})
}
