package types

import "github.com/google/uuid"

// GenerateRecipeRequest asks for a generated recipe
type GenerateRecipeRequest struct {
	Query string `json:"query" binding:"required"`
}

// CreateCommentRequest adds a comment or a reply to a recipe
type CreateCommentRequest struct {
	Author   string     `json:"author" binding:"required"`
	Body     string     `json:"body" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// ScrapeIngredientsRequest triggers a retailer scrape for one product name
type ScrapeIngredientsRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	ZipCode     string `json:"zip_code" binding:"required"`
}

// IngredientQuery asks for the cheapest stored products for an ingredient
type IngredientQuery struct {
	Ingredient string  `form:"ingredient" binding:"required"`
	Amount     float64 `form:"amount"`
	Unit       string  `form:"unit"`
}

// RecipeListQuery holds the query string of GET /recipes
type RecipeListQuery struct {
	Sort       string `form:"sort"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
	Search     string `form:"search"`
	Cuisine    string `form:"cuisine"`
	Difficulty string `form:"difficulty"`
}

// ProductListQuery holds the query string of GET /products
type ProductListQuery struct {
	Provider string `form:"provider"`
	Category string `form:"category"`
	Limit    int    `form:"limit"`
}
