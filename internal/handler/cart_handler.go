package handler

import (
	"net/http"
	"strconv"

	"pharmacy/internal/config"
	"pharmacy/internal/middleware"
	"pharmacy/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP。未ログインでもカートは持てる。
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	CartID    string         `json:"cart_id"` // 空なら新規カート
	ProductID int64          `json:"product_id"`
	Quantity  int64          `json:"quantity"`
	TagSlug   string         `json:"tag_slug,omitempty"`
	FormValue map[string]any `json:"form_value,omitempty"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// /cart を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.OptionalAuthJWT(cfg))

	g.GET("/:id", h.getCart)
	g.POST("", h.addToCart)
	g.PATCH("/:id/items/:product_id", h.patchItem)
	g.DELETE("/:id/items/:product_id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	view, err := h.uc.FindCart(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	// 不明なカートはエラーではなくnullを返す
	return c.JSON(http.StatusOK, view)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in := usecase.AddOrUpdateCartInput{
		CartID:    req.CartID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}
	if userID, ok := c.Get(middleware.CtxUserIDKey).(string); ok {
		in.UserID = userID
	}
	if req.TagSlug != "" || len(req.FormValue) > 0 {
		in.MetaForm = &usecase.CartMetaFormInput{
			TagSlug: req.TagSlug,
			Value:   req.FormValue,
		}
	}

	cart, err := h.uc.AddOrUpdate(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateQuantity(c.Request().Context(), c.Param("id"), productID, req.Quantity); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	cart, err := h.uc.RemoveLine(c.Request().Context(), c.Param("id"), productID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, cart)
}
