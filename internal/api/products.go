package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pantryscout/backend/internal/middleware"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/service"
	"github.com/pantryscout/backend/internal/types"
)

// ProductHandler serves stored products, ingredient quotes and live scrapes
type ProductHandler struct {
	products service.IProductService
	tokens   middleware.TokenValidator
	limiter  gin.HandlerFunc
}

// NewProductHandler creates a ProductHandler. Write endpoints require a
// service token validated by tokens; limiter may be nil.
func NewProductHandler(products service.IProductService, tokens middleware.TokenValidator, limiter gin.HandlerFunc) *ProductHandler {
	return &ProductHandler{products: products, tokens: tokens, limiter: limiter}
}

func (h *ProductHandler) RegisterRoutes(router gin.IRouter) {
	auth := middleware.AuthMiddleware(h.tokens)

	router.GET("/products", h.ListProducts)
	router.POST("/products", auth, middleware.RequireScope(types.ScopeProductsWrite), h.CreateProduct)
	router.GET("/ingredients", h.LookupIngredient)

	scrape := []gin.HandlerFunc{auth, middleware.RequireScope(types.ScopeScrape)}
	if h.limiter != nil {
		scrape = append(scrape, h.limiter)
	}
	router.POST("/scrapeIngredients", append(scrape, h.ScrapeIngredients)...)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	var q types.ProductListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	products, err := h.products.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var p model.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.products.Create(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) LookupIngredient(c *gin.Context) {
	var q types.IngredientQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	quote, err := h.products.Lookup(c.Request.Context(), q.Ingredient, q.Amount, q.Unit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *ProductHandler) ScrapeIngredients(c *gin.Context) {
	var req types.ScrapeIngredientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := h.products.Scrape(c.Request.Context(), req.ProductName, req.ZipCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
