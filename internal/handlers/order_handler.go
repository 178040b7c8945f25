package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/checkout"
	"github.com/upscwallahhacker-cell/Desikart/internal/dto"
	"github.com/upscwallahhacker-cell/Desikart/internal/middleware"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"
	"github.com/upscwallahhacker-cell/Desikart/internal/orders"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders   *orders.Store
	checkout *checkout.Orchestrator
	log      *zap.Logger
}

func NewOrderHandler(store *orders.Store, co *checkout.Orchestrator, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: store, checkout: co, log: log}
}

// Checkout превращает текущую корзину в заказ.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	uid := c.GetString(middleware.CtxUserID)
	order, err := h.checkout.Place(c.Request.Context(), uid, checkout.Request{
		Phone:   req.Phone,
		Address: req.Address,
		Pin:     req.Pin,
		Method:  req.Method,
		UTR:     req.UTR,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart),
			errors.Is(err, checkout.ErrInvalidPhone),
			errors.Is(err, checkout.ErrAddressRequired),
			errors.Is(err, checkout.ErrInvalidPin),
			errors.Is(err, checkout.ErrInvalidUTR),
			errors.Is(err, checkout.ErrInvalidPayment),
			errors.Is(err, checkout.ErrCODUnavailable):
			c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
		case errors.Is(err, checkout.ErrNotSignedIn):
			c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
		default:
			h.log.Error("checkout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError("checkout failed"))
		}
		return
	}
	c.JSON(http.StatusCreated, h.orderResponse(order))
}

// ListMine — заказы владельца токена, новые сверху.
func (h *OrderHandler) ListMine(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	list := h.orders.ListForUser(uid)
	out := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, h.orderResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("order not found"))
		return
	}
	uid := c.GetString(middleware.CtxUserID)
	if order.UserID != uid && c.GetString(middleware.CtxUserRole) != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("not your order"))
		return
	}
	c.JSON(http.StatusOK, h.orderResponse(order))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req dto.CancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	uid := c.GetString(middleware.CtxUserID)
	err := h.orders.Cancel(c.Request.Context(), c.Param("id"), uid, req.RefundUPI)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OrderHandler) RequestReturn(c *gin.Context) {
	var req dto.ReturnOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("refund UPI ID is required", nil))
		return
	}

	uid := c.GetString(middleware.CtxUserID)
	err := h.orders.RequestReturn(c.Request.Context(), c.Param("id"), uid, req.RefundUPI)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Админские операции.

func (h *OrderHandler) ListAll(c *gin.Context) {
	list := h.orders.ListAll()
	out := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, h.orderResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	if err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.RefundUPI); err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OrderHandler) SetExpectedDelivery(c *gin.Context) {
	var req dto.ExpectedDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	if err := h.orders.SetExpectedDelivery(c.Request.Context(), c.Param("id"), req.ExpectedDeliveryDate); err != nil {
		h.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("order not found"))
	case errors.Is(err, orders.ErrNotOwner):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("not your order"))
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrCancelNotAllowed),
		errors.Is(err, orders.ErrRefundUPIRequired),
		errors.Is(err, orders.ErrWaitForDelivery),
		errors.Is(err, orders.ErrReturnPeriodExpired),
		errors.Is(err, orders.ErrReturnsNotAccepted):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	default:
		h.log.Error("order operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError("order operation failed"))
	}
}

func (h *OrderHandler) orderResponse(o models.Order) dto.OrderResponse {
	now := time.Now()
	return dto.OrderResponse{
		Order:               o,
		RemainingReturnDays: orders.RemainingReturnDays(o, now),
		ReturnWindowOpen:    orders.ReturnWindowOpen(o, now),
	}
}
