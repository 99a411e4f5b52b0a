package handler

import (
	"net/http"
	"strconv"

	"pharmacy/internal/config"
	"pharmacy/internal/middleware"
	"pharmacy/internal/usecase"

	"github.com/labstack/echo/v4"
)

// SuccessResponse は { message: string } の形に寄せます。
type SuccessResponse struct {
	Message string `json:"message"`
}

type ProductRequest struct {
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Description  string  `json:"description"`
	Image        string  `json:"image"`
	SellingPrice float64 `json:"selling_price"`
	CostPrice    float64 `json:"cost_price"`
	TaxClassID   int64   `json:"tax_class_id"`
	LimitPerUser int64   `json:"limit_per_user"`
	TagSlug      string  `json:"tag_slug"`
	BrandID      *int64  `json:"brand_id"`
	CategoryIDs  []int64 `json:"category_ids"`
	Stock        int64   `json:"stock"`
}

// InventoryUpdateRequest は在庫更新の入力です。
type InventoryUpdateRequest struct {
	Stock int64 `json:"stock"`
}

// /admin/products と /admin/inventory をまとめる
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.PUT("/inventory/:product_id", h.updateInventory)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	id, err := h.uc.AdminCreateProduct(c.Request().Context(), productInput(req))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.AdminUpdateProduct(c.Request().Context(), id, productInput(req)); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}

	var req InventoryUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.AdminSetStock(c.Request().Context(), productID, req.Stock); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func productInput(req ProductRequest) usecase.AdminProductInput {
	return usecase.AdminProductInput{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		Image:        req.Image,
		SellingPrice: req.SellingPrice,
		CostPrice:    req.CostPrice,
		TaxClassID:   req.TaxClassID,
		LimitPerUser: req.LimitPerUser,
		TagSlug:      req.TagSlug,
		BrandID:      req.BrandID,
		CategoryIDs:  req.CategoryIDs,
		Stock:        req.Stock,
	}
}
