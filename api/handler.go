package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pos_admin/internal/sales"
)

// salesHandler holds the sales service and implements HTTP handlers for sales operations.
type salesHandler struct {
	salesService *sales.Service
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		logger:       logger,
	}
}

type pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// pageParams reads ?page= and ?page_size=. Missing values are zero and get
// normalized by the services.
func pageParams(ctx *gin.Context) (page, pageSize int, ok bool) {
	var err error
	if v := ctx.Query("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return 0, 0, false
		}
	}
	if v := ctx.Query("page_size"); v != "" {
		if pageSize, err = strconv.Atoi(v); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
			return 0, 0, false
		}
	}
	return page, pageSize, true
}

func saleID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return 0, false
	}
	return id, true
}

func (h *salesHandler) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
	case errors.Is(err, sales.ErrInvalidStatus):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid status value"})
	case errors.Is(err, sales.ErrInvalidTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// handlerGetSales handles GET /sales.
func (h *salesHandler) handlerGetSales(ctx *gin.Context) {
	page, pageSize, ok := pageParams(ctx)
	if !ok {
		return
	}
	status := ctx.Query("status")

	results, metadata, err := h.salesService.ListSales(ctx.Request.Context(), page, pageSize, status)
	if err != nil {
		h.logger.Error("Error searching sales", zap.String("status_filter", status), zap.Error(err))
		h.writeError(ctx, err)
		return
	}
	total, err := h.salesService.CountSales(ctx.Request.Context(), status)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	_, limit := h.salesService.Page(page, pageSize)
	if page < 1 {
		page = 1
	}
	ctx.JSON(http.StatusOK, gin.H{
		"results":    results,
		"metadata":   metadata,
		"pagination": pagination{Page: page, PageSize: limit, Total: total},
	})
}

func (h *salesHandler) handleGetSale(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	sale, err := h.salesService.GetSale(ctx.Request.Context(), id)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sale)
}

// PatchSaleHandler handles PATCH /sales/:id with a {"status": ...} body.
func (h *salesHandler) PatchSaleHandler(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.salesService.UpdateSaleStatus(ctx.Request.Context(), id, req.Status)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Estado de la venta actualizado", "data": updated})
}

// handleToggleSale handles POST /sales/:id/toggle.
func (h *salesHandler) handleToggleSale(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	updated, err := h.salesService.ToggleSaleStatus(ctx.Request.Context(), id)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Estado de la venta actualizado", "data": updated})
}

func (h *salesHandler) handleReceipt(ctx *gin.Context) {
	id, ok := saleID(ctx)
	if !ok {
		return
	}
	receipt, err := h.salesService.Receipt(ctx.Request.Context(), id)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, receipt)
}
