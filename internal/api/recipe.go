package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/service"
	"github.com/pantryscout/backend/internal/types"
)

// PictureURLExpiry is the lifetime of presigned picture URLs
const PictureURLExpiry = 15 * time.Minute

// RecipeHandler serves recipe generation, storage, likes, comments and pictures
type RecipeHandler struct {
	recipes   service.IRecipeService
	generator service.IRecipeGenerator
	pictures  service.IPictureService
	limiter   gin.HandlerFunc
}

// NewRecipeHandler creates a RecipeHandler. pictures may be nil when no bucket
// is configured; limiter may be nil to disable rate limiting of generation.
func NewRecipeHandler(recipes service.IRecipeService, generator service.IRecipeGenerator, pictures service.IPictureService, limiter gin.HandlerFunc) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, generator: generator, pictures: pictures, limiter: limiter}
}

func (h *RecipeHandler) RegisterRoutes(router gin.IRouter) {
	generate := []gin.HandlerFunc{h.GenerateRecipe}
	if h.limiter != nil {
		generate = append([]gin.HandlerFunc{h.limiter}, generate...)
	}
	router.POST("/generate-recipe", generate...)
	router.POST("/recipe", h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/featured", h.FeaturedRecipes)
		recipes.GET("/:id", h.GetRecipe)
		recipes.POST("/:id/like", h.LikeRecipe)
		recipes.GET("/:id/comments", h.ListComments)
		recipes.POST("/:id/comments", h.AddComment)
		recipes.POST("/:id/picture", h.UploadPicture)
		recipes.GET("/:id/picture", h.GetPicture)
	}
}

func recipeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid recipe id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *RecipeHandler) GenerateRecipe(c *gin.Context) {
	var req types.GenerateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	recipe, err := h.generator.Generate(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var recipe model.Recipe
	if err := c.ShouldBindJSON(&recipe); err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := h.recipes.CreateRecipe(c.Request.Context(), &recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status": "Recipe created successfully",
		"id":     created.ID,
	})
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	var q types.RecipeListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	filter := service.RecipeFilter{
		Sort:       q.Sort,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Search:     q.Search,
		Cuisine:    q.Cuisine,
		Difficulty: q.Difficulty,
	}
	recipes, err := h.recipes.ListRecipes(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

func (h *RecipeHandler) FeaturedRecipes(c *gin.Context) {
	recipes, err := h.recipes.FeaturedRecipes(c.Request.Context(), 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) LikeRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	likes, err := h.recipes.LikeRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "likes": likes})
}

func (h *RecipeHandler) ListComments(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	comments, err := h.recipes.Comments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *RecipeHandler) AddComment(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	var req types.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.recipes.AddComment(c.Request.Context(), id, req.Author, req.Body, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *RecipeHandler) UploadPicture(c *gin.Context) {
	if h.pictures == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "picture storage is not configured"})
		return
	}
	id, ok := recipeID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "failed to read file")
		return
	}
	defer file.Close()

	url, path, err := h.pictures.Upload(c.Request.Context(), id, header.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "path": path})
}

func (h *RecipeHandler) GetPicture(c *gin.Context) {
	if h.pictures == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "picture storage is not configured"})
		return
	}
	id, ok := recipeID(c)
	if !ok {
		return
	}

	url, err := h.pictures.PresignedURL(c.Request.Context(), id, PictureURLExpiry)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
