package handlers

import (
	"net/http"

	"github.com/upscwallahhacker-cell/Desikart/internal/cart"
	"github.com/upscwallahhacker-cell/Desikart/internal/catalog"
	"github.com/upscwallahhacker-cell/Desikart/internal/dto"
	"github.com/upscwallahhacker-cell/Desikart/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts   *cart.Carts
	catalog *catalog.Synchronizer
	log     *zap.Logger
}

func NewCartHandler(carts *cart.Carts, cat *catalog.Synchronizer, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, catalog: cat, log: log}
}

// basket — корзина владельца токена из контекста запроса.
func (h *CartHandler) basket(c *gin.Context) *cart.Cart {
	return h.carts.For(c.GetString(middleware.CtxUserID))
}

func (h *CartHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, cartResponse(h.basket(c)))
}

func (h *CartHandler) Add(c *gin.Context) {
	var req dto.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	p, ok := h.catalog.Product(req.ProductID)
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("product not found"))
		return
	}
	if !p.InStock {
		c.JSON(http.StatusConflict, dto.NewConflictError("product is out of stock"))
		return
	}
	basket := h.basket(c)
	basket.Add(p)
	c.JSON(http.StatusOK, cartResponse(basket))
}

func (h *CartHandler) Remove(c *gin.Context) {
	basket := h.basket(c)
	basket.Remove(c.Param("id"))
	c.JSON(http.StatusOK, cartResponse(basket))
}

func (h *CartHandler) Clear(c *gin.Context) {
	basket := h.basket(c)
	basket.Clear()
	c.JSON(http.StatusOK, cartResponse(basket))
}

func cartResponse(basket *cart.Cart) dto.CartResponse {
	return dto.CartResponse{
		Items: basket.Items(),
		Total: basket.Total(),
		Count: basket.Count(),
	}
}
