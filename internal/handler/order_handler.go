package handler

import (
	"net/http"
	"strconv"

	"pharmacy/internal/config"
	"pharmacy/internal/domain/model"
	"pharmacy/internal/middleware"
	repo "pharmacy/internal/repository"
	"pharmacy/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 注文の照会と管理操作
type OrderHandler struct {
	uc *usecase.OrderUsecase
}

// DI
func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderStatusRequest struct {
	Status string `json:"status"` // APPROVED / REJECT
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	// 購入完了画面がカートIDで照会する
	e.GET("/orders/by-cart/:cart_id", h.getByCart)

	admin := e.Group("/admin/orders")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("", h.list)
	admin.GET("/:id", h.detail)
	admin.PATCH("/:id/status", h.updateStatus)
}

func (h *OrderHandler) getByCart(c echo.Context) error {
	out, err := h.uc.GetByCartID(c.Request().Context(), c.Param("cart_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	items, total, err := h.uc.List(c.Request().Context(), repo.OrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *OrderHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateStatus(c.Request().Context(), id, model.OrderStatus(req.Status)); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}
