package handlers

import (
	"errors"
	"net/http"

	"github.com/upscwallahhacker-cell/Desikart/internal/catalog"
	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/dto"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalog *catalog.Synchronizer
	log     *zap.Logger
}

func NewCatalogHandler(cat *catalog.Synchronizer, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: cat, log: log}
}

// List отдаёт каталог; query-параметры q и cat фильтруют выдачу.
func (h *CatalogHandler) List(c *gin.Context) {
	products := h.catalog.Search(c.Query("q"), c.Query("cat"))
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"fallback": h.catalog.UsingFallback(),
	})
}

func (h *CatalogHandler) Get(c *gin.Context) {
	p, ok := h.catalog.Product(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("product not found"))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.EffectiveSettings())
}

// Админские операции.

func (h *CatalogHandler) Create(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil || p.ID == "" || p.Name == "" {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product", nil))
		return
	}
	if err := h.catalog.AddProduct(c.Request.Context(), p); err != nil {
		h.log.Error("failed to add product", zap.String("id", p.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError("failed to add product"))
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) Update(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid patch", nil))
		return
	}
	// id и uid не перезаписываются патчем
	delete(fields, "id")
	if err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.NewNotFoundError("product not found"))
			return
		}
		h.log.Error("failed to update product", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError("failed to update product"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *CatalogHandler) Delete(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		h.log.Error("failed to delete product", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError("failed to delete product"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *CatalogHandler) UpdateSettings(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid settings patch", nil))
		return
	}
	if err := h.catalog.UpdateSettings(c.Request.Context(), fields); err != nil {
		h.log.Error("failed to update settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError("failed to update settings"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
