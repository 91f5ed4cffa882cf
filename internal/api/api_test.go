package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pantryscout/backend/internal/cache"
	"github.com/pantryscout/backend/internal/llm"
	"github.com/pantryscout/backend/internal/middleware"
	"github.com/pantryscout/backend/internal/mocks"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/service"
	"github.com/pantryscout/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router    *gin.Engine
	recipes   *mocks.MockRecipeService
	products  *mocks.MockProductService
	generator *mocks.MockRecipeGenerator
	pictures  *mocks.MockPictureService
	tokens    *mocks.MockTokenService
}

func setupTestAPI(t *testing.T, limit int) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a := &testAPI{
		router:    gin.New(),
		recipes:   new(mocks.MockRecipeService),
		products:  new(mocks.MockProductService),
		generator: new(mocks.MockRecipeGenerator),
		pictures:  new(mocks.MockPictureService),
		tokens:    new(mocks.MockTokenService),
	}
	deps := Dependencies{
		Recipes:   a.recipes,
		Products:  a.products,
		Generator: a.generator,
		Pictures:  a.pictures,
		Tokens:    a.tokens,
	}
	if limit > 0 {
		store := cache.NewMemory()
		deps.GenerateLimiter = middleware.NewGenerateRateLimiter(store, limit)
		deps.ScrapeLimiter = middleware.NewScrapeRateLimiter(store, limit)
	}
	SetupAPI(a.router, deps)

	t.Cleanup(func() {
		a.recipes.AssertExpectations(t)
		a.products.AssertExpectations(t)
		a.generator.AssertExpectations(t)
		a.pictures.AssertExpectations(t)
		a.tokens.AssertExpectations(t)
	})
	return a
}

func (a *testAPI) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	t.Run("should report healthy", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		w := a.do(http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decode(t, w)["status"])
	})

	t.Run("should stay healthy and list failing checks", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		NewHealthHandler(map[string]Pinger{
			"database": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
		}).RegisterRoutes(r)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		assert.Equal(t, "healthy", body["status"])
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "ok", checks["database"])
		assert.Equal(t, "connection refused", checks["redis"])
	})
}

func TestGenerateRecipe(t *testing.T) {
	t.Run("should return the generated recipe", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.generator.On("Generate", mock.Anything, "vegan lasagna").
			Return(&service.GeneratedRecipe{Title: "Vegan Lasagna", Servings: 6}, nil)

		w := a.do(http.MethodPost, "/generate-recipe", types.GenerateRecipeRequest{Query: "vegan lasagna"})
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Vegan Lasagna", body["title"])
	})

	t.Run("should reject a missing query", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		w := a.do(http.MethodPost, "/generate-recipe", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should report an incomplete recipe as a server error", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.generator.On("Generate", mock.Anything, "soup").
			Return(nil, fmt.Errorf("%w: received [notes]", service.ErrIncompleteRecipe))

		w := a.do(http.MethodPost, "/generate-recipe", types.GenerateRecipeRequest{Query: "soup"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		detail := decode(t, w)["detail"].(map[string]any)
		assert.Equal(t, "IncompleteRecipe", detail["type"])
		assert.Contains(t, detail["error"], "notes")
	})

	t.Run("should return 503 when the llm is not configured", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.generator.On("Generate", mock.Anything, "soup").Return(nil, llm.ErrNotConfigured)

		w := a.do(http.MethodPost, "/generate-recipe", types.GenerateRecipeRequest{Query: "soup"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("should rate limit generation", func(t *testing.T) {
		a := setupTestAPI(t, 1)
		a.generator.On("Generate", mock.Anything, "soup").
			Return(&service.GeneratedRecipe{Title: "Soup"}, nil).Once()

		first := a.do(http.MethodPost, "/generate-recipe", types.GenerateRecipeRequest{Query: "soup"})
		assert.Equal(t, http.StatusOK, first.Code)
		second := a.do(http.MethodPost, "/generate-recipe", types.GenerateRecipeRequest{Query: "soup"})
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.NotEmpty(t, second.Header().Get("Retry-After"))
	})
}

func TestCreateRecipe(t *testing.T) {
	t.Run("should create a recipe", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id := uuid.New()
		a.recipes.On("CreateRecipe", mock.Anything, mock.MatchedBy(func(r *model.Recipe) bool {
			return r.Title == "Pancakes"
		})).Return(&model.Recipe{ID: id, Title: "Pancakes"}, nil)

		w := a.do(http.MethodPost, "/recipe", map[string]any{"title": "Pancakes", "servings": 4})
		assert.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Recipe created successfully", body["status"])
		assert.Equal(t, id.String(), body["id"])
	})

	t.Run("should return 409 for a duplicate title", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.recipes.On("CreateRecipe", mock.Anything, mock.Anything).Return(nil, model.ErrDuplicateRecipe)

		w := a.do(http.MethodPost, "/recipe", map[string]any{"title": "Pancakes"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("should return 400 for invalid input", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.recipes.On("CreateRecipe", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: title is required", service.ErrInvalidInput))

		w := a.do(http.MethodPost, "/recipe", map[string]any{"title": " "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListRecipes(t *testing.T) {
	t.Run("should pass query filters through", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		filter := service.RecipeFilter{Sort: "popular", Limit: 5, Search: "tofu", Cuisine: "thai"}
		a.recipes.On("ListRecipes", mock.Anything, filter).
			Return([]model.Recipe{{Title: "Pad Thai"}}, nil)

		w := a.do(http.MethodGet, "/recipes?sort=popular&limit=5&search=tofu&cuisine=thai", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		recipes := decode(t, w)["recipes"].([]any)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Pad Thai", recipes[0].(map[string]any)["title"])
	})

	t.Run("should return 400 for an unknown sort", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.recipes.On("ListRecipes", mock.Anything, service.RecipeFilter{Sort: "random"}).
			Return(nil, service.ErrInvalidSort)

		w := a.do(http.MethodGet, "/recipes?sort=random", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should list featured recipes", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.recipes.On("FeaturedRecipes", mock.Anything, 0).
			Return([]model.Recipe{{Title: "Chili", Featured: true}}, nil)

		w := a.do(http.MethodGet, "/recipes/featured", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["recipes"], 1)
	})
}

func TestRecipeByID(t *testing.T) {
	t.Run("should reject a malformed id", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		w := a.do(http.MethodGet, "/recipes/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should return 404 for a missing recipe", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id := uuid.New()
		a.recipes.On("GetRecipe", mock.Anything, id).Return(nil, model.ErrRecipeNotFound)

		w := a.do(http.MethodGet, "/recipes/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should like a recipe", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id := uuid.New()
		a.recipes.On("LikeRecipe", mock.Anything, id).Return(3, nil)

		w := a.do(http.MethodPost, "/recipes/"+id.String()+"/like", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(3), decode(t, w)["likes"])
	})

	t.Run("should add a reply", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id, parent := uuid.New(), uuid.New()
		a.recipes.On("AddComment", mock.Anything, id, "ana", "great", &parent).
			Return(&model.Comment{RecipeID: id, Author: "ana", Body: "great", ParentID: &parent}, nil)

		w := a.do(http.MethodPost, "/recipes/"+id.String()+"/comments",
			types.CreateCommentRequest{Author: "ana", Body: "great", ParentID: &parent})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("should reject a parent from another recipe", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id, parent := uuid.New(), uuid.New()
		a.recipes.On("AddComment", mock.Anything, id, "ana", "great", &parent).
			Return(nil, service.ErrInvalidParent)

		w := a.do(http.MethodPost, "/recipes/"+id.String()+"/comments",
			types.CreateCommentRequest{Author: "ana", Body: "great", ParentID: &parent})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should list comments", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id := uuid.New()
		a.recipes.On("Comments", mock.Anything, id).
			Return([]model.Comment{{Author: "ana", Body: "great"}}, nil)

		w := a.do(http.MethodGet, "/recipes/"+id.String()+"/comments", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["comments"], 1)
	})
}

func TestRecipePicture(t *testing.T) {
	t.Run("should upload a picture", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id := uuid.New()
		a.pictures.On("Upload", mock.Anything, id, "dish.png", mock.Anything).
			Return("https://bucket.s3.amazonaws.com/key.png", "key.png", nil)

		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		part, err := form.CreateFormFile("file", "dish.png")
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, form.Close())

		req := httptest.NewRequest(http.MethodPost, "/recipes/"+id.String()+"/picture", &buf)
		req.Header.Set("Content-Type", form.FormDataContentType())
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "key.png", decode(t, w)["path"])
	})

	t.Run("should require a file", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		w := a.do(http.MethodPost, "/recipes/"+uuid.NewString()+"/picture", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should return 404 when no picture is stored", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		id := uuid.New()
		a.pictures.On("PresignedURL", mock.Anything, id, PictureURLExpiry).Return("", service.ErrNoPicture)

		w := a.do(http.MethodGet, "/recipes/"+id.String()+"/picture", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProducts(t *testing.T) {
	validClaims := &types.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "scraper"}}

	t.Run("should list products", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.products.On("List", mock.Anything, types.ProductListQuery{Provider: "kroger"}).
			Return([]model.Product{{ItemName: "Tofu", Provider: "kroger"}}, nil)

		w := a.do(http.MethodGet, "/products?provider=kroger", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["products"], 1)
	})

	t.Run("should require a token to create products", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		w := a.do(http.MethodPost, "/products", map[string]any{"itemName": "Tofu"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("should forbid tokens without the write scope", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		claims := &types.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "reader"},
			Scopes:           []string{types.ScopeScrape},
		}
		a.tokens.On("ValidateToken", "tok").Return(claims, nil)

		w := a.do(http.MethodPost, "/products", map[string]any{"itemName": "Tofu"}, "Authorization", "Bearer tok")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("should create a product with a valid token", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.tokens.On("ValidateToken", "tok").Return(validClaims, nil)
		a.products.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Product) bool {
			return p.ItemName == "Tofu" && p.Price == 1.99
		})).Return(nil)

		w := a.do(http.MethodPost, "/products", map[string]any{"itemName": "Tofu", "price": 1.99}, "Authorization", "Bearer tok")
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("should return 409 for a duplicate product", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.tokens.On("ValidateToken", "tok").Return(validClaims, nil)
		a.products.On("Create", mock.Anything, mock.Anything).Return(model.ErrDuplicateProduct)

		w := a.do(http.MethodPost, "/products", map[string]any{"itemName": "Tofu"}, "Authorization", "Bearer tok")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("should quote an ingredient", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.products.On("Lookup", mock.Anything, "tofu", 2.0, "lb").
			Return(&service.IngredientQuote{Ingredient: "tofu", Amount: 2, Unit: "lb", AmountOz: 32}, nil)

		w := a.do(http.MethodGet, "/ingredients?ingredient=tofu&amount=2&unit=lb", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(32), decode(t, w)["amountOz"])
	})

	t.Run("should return 404 when no product matches", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.products.On("Lookup", mock.Anything, "saffron", 0.0, "").Return(nil, service.ErrNoProducts)

		w := a.do(http.MethodGet, "/ingredients?ingredient=saffron", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should scrape ingredients", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.tokens.On("ValidateToken", "tok").Return(validClaims, nil)
		a.products.On("Scrape", mock.Anything, "tofu", "45202").
			Return(&service.ScrapeResult{Term: "tofu", Zip: "45202", Created: 2}, nil)

		w := a.do(http.MethodPost, "/scrapeIngredients",
			types.ScrapeIngredientsRequest{ProductName: "tofu", ZipCode: "45202"}, "Authorization", "Bearer tok")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), decode(t, w)["created"])
	})

	t.Run("should return 502 when every retailer fails", func(t *testing.T) {
		a := setupTestAPI(t, 0)
		a.tokens.On("ValidateToken", "tok").Return(validClaims, nil)
		a.products.On("Scrape", mock.Anything, "tofu", "45202").
			Return(nil, fmt.Errorf("%w: kroger: timeout", service.ErrAllProvidersFailed))

		w := a.do(http.MethodPost, "/scrapeIngredients",
			types.ScrapeIngredientsRequest{ProductName: "tofu", ZipCode: "45202"}, "Authorization", "Bearer tok")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		detail := decode(t, w)["detail"].(map[string]any)
		assert.Equal(t, "UpstreamFailure", detail["type"])
	})
}

func TestStatusFor(t *testing.T) {
	t.Run("should default unknown errors to 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
		assert.Equal(t, "InternalError", errorType(errors.New("boom")))
	})
}
