package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"voyager-api/internal/domain"
	"voyager-api/internal/repository"
)

// ProductHandler mantiene dependencias para endpoints del catalogo.
type ProductHandler struct {
	logger   *zap.Logger
	products repository.ProductRepository
}

// NewProductHandler crea una instancia de ProductHandler con dependencias necesarias.
func NewProductHandler(logger *zap.Logger, products repository.ProductRepository) *ProductHandler {
	return &ProductHandler{
		logger:   logger,
		products: products,
	}
}

// List maneja GET /api/products.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, products)
}

// Get maneja GET /api/products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid product ID format"})
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "Product not found"})
			return
		}
		h.logger.Error("get product failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// Create maneja POST /api/products.
func (h *ProductHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Unauthorized"})
		return
	}

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description" binding:"required"`
		Price       float64  `json:"price" binding:"required"`
		Images      []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create product request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}
	if req.Images == nil {
		req.Images = []string{}
	}

	product := domain.Product{
		ID:          uuid.NewString(),
		UserID:      claims.UserID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.products.Create(c.Request.Context(), product); err != nil {
		h.logger.Error("create product failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// Update maneja PUT /api/products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Unauthorized"})
		return
	}

	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Price       float64  `json:"price"`
		Images      []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update product request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}

	existing, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "Product not found"})
			return
		}
		h.logger.Error("get product failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}
	if existing.UserID != claims.UserID {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "User not authorized"})
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Price != 0 {
		existing.Price = req.Price
	}
	if req.Images != nil {
		existing.Images = req.Images
	}

	product, err := h.products.Update(c.Request.Context(), existing)
	if err != nil {
		h.logger.Error("update product failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete maneja DELETE /api/products/:id.
func (h *ProductHandler) Delete(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Unauthorized"})
		return
	}

	existing, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "Product not found"})
			return
		}
		h.logger.Error("get product failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}
	if existing.UserID != claims.UserID {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "User not authorized"})
		return
	}

	if err := h.products.Delete(c.Request.Context(), existing.ID); err != nil {
		h.logger.Error("delete product failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Product removed"})
}
