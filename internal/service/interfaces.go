package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/types"
)

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe) (*model.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, error)
	FeaturedRecipes(ctx context.Context, limit int) ([]model.Recipe, error)
	LikeRecipe(ctx context.Context, id uuid.UUID) (int, error)
	AddComment(ctx context.Context, recipeID uuid.UUID, author, body string, parentID *uuid.UUID) (*model.Comment, error)
	Comments(ctx context.Context, recipeID uuid.UUID) ([]model.Comment, error)
}

// IProductService defines the interface for product operations
type IProductService interface {
	Scrape(ctx context.Context, term, zip string) (*ScrapeResult, error)
	Create(ctx context.Context, p *model.Product) error
	List(ctx context.Context, q types.ProductListQuery) ([]model.Product, error)
	Lookup(ctx context.Context, ingredient string, amount float64, unit string) (*IngredientQuote, error)
}

// IRecipeGenerator defines the interface for recipe generation
type IRecipeGenerator interface {
	Generate(ctx context.Context, query string) (*GeneratedRecipe, error)
}

// ITokenService defines the interface for service token operations
type ITokenService interface {
	GenerateToken(subject string, scopes []string, ttl time.Duration) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
}

// IPictureService defines the interface for recipe picture storage
type IPictureService interface {
	Upload(ctx context.Context, recipeID uuid.UUID, filename string, r io.Reader) (string, string, error)
	PresignedURL(ctx context.Context, recipeID uuid.UUID, expiration time.Duration) (string, error)
}

var (
	_ IRecipeService   = (*RecipeService)(nil)
	_ IProductService  = (*ProductService)(nil)
	_ IRecipeGenerator = (*RecipeGenerator)(nil)
	_ ITokenService    = (*TokenService)(nil)
	_ IPictureService  = (*PictureService)(nil)
)
