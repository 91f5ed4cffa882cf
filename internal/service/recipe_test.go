package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRecipeService(t *testing.T) (*RecipeService, *gorm.DB) {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	return NewRecipeService(db), db
}

func createRecipe(t *testing.T, svc *RecipeService, r model.Recipe) *model.Recipe {
	t.Helper()
	created, err := svc.CreateRecipe(context.Background(), &r)
	require.NoError(t, err)
	return created
}

func TestRecipeServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupRecipeService(t)

	t.Run("should create a recipe with an embedding", func(t *testing.T) {
		r, err := svc.CreateRecipe(ctx, &model.Recipe{
			Title:       " Mapo Tofu ",
			Cuisine:     "Sichuan",
			Tags:        model.TagList{"spicy"},
			Ingredients: model.IngredientList{{Name: "tofu", Amount: "14", Unit: "oz"}},
			Steps:       model.StepList{"Cut the tofu.", "Simmer."},
			Likes:       10,
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, r.ID)
		assert.Equal(t, "Mapo Tofu", r.Title)
		assert.Zero(t, r.Likes)
		assert.Len(t, r.Embedding.Slice(), model.EmbeddingDimensions)

		got, err := svc.GetRecipe(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StepList{"Cut the tofu.", "Simmer."}, got.Steps)
		assert.Equal(t, "tofu", got.Ingredients[0].Name)
	})

	t.Run("should reject duplicate titles regardless of case", func(t *testing.T) {
		_, err := svc.CreateRecipe(ctx, &model.Recipe{Title: "mapo tofu"})
		assert.ErrorIs(t, err, model.ErrDuplicateRecipe)
	})

	t.Run("should ignore featured and image path from the caller", func(t *testing.T) {
		r, err := svc.CreateRecipe(ctx, &model.Recipe{
			Title:     "Curated Elsewhere",
			Featured:  true,
			ImagePath: "private/payroll.csv",
		})
		require.NoError(t, err)
		assert.False(t, r.Featured)
		assert.Empty(t, r.ImagePath)

		got, err := svc.GetRecipe(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, got.Featured)
		assert.Empty(t, got.ImagePath)

		featured, err := svc.FeaturedRecipes(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, featured)
	})

	t.Run("should require a title", func(t *testing.T) {
		_, err := svc.CreateRecipe(ctx, &model.Recipe{Title: "   "})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("should report missing recipes", func(t *testing.T) {
		_, err := svc.GetRecipe(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrRecipeNotFound)
	})
}

func TestRecipeServiceList(t *testing.T) {
	ctx := context.Background()
	svc, db := setupRecipeService(t)

	old := createRecipe(t, svc, model.Recipe{Title: "Pad Thai", Cuisine: "Thai", Difficulty: "medium", Tags: model.TagList{"noodles"}})
	mid := createRecipe(t, svc, model.Recipe{Title: "Green Curry", Cuisine: "Thai", Difficulty: "hard"})
	newest := createRecipe(t, svc, model.Recipe{Title: "Tacos", Cuisine: "Mexican", Difficulty: "easy"})

	base := time.Now().Add(-time.Hour)
	for i, r := range []*model.Recipe{old, mid, newest} {
		require.NoError(t, db.Model(&model.Recipe{}).Where("id = ?", r.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	require.NoError(t, db.Model(&model.Recipe{}).Where("id = ?", mid.ID).UpdateColumn("likes", 5).Error)

	titles := func(rs []model.Recipe) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Title
		}
		return out
	}

	t.Run("should sort newest first by default", func(t *testing.T) {
		rs, err := svc.ListRecipes(ctx, RecipeFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Tacos", "Green Curry", "Pad Thai"}, titles(rs))
	})

	t.Run("should sort oldest and popular", func(t *testing.T) {
		rs, err := svc.ListRecipes(ctx, RecipeFilter{Sort: SortOldest})
		require.NoError(t, err)
		assert.Equal(t, []string{"Pad Thai", "Green Curry", "Tacos"}, titles(rs))

		rs, err = svc.ListRecipes(ctx, RecipeFilter{Sort: SortPopular, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"Green Curry"}, titles(rs))
	})

	t.Run("should reject unknown sort", func(t *testing.T) {
		_, err := svc.ListRecipes(ctx, RecipeFilter{Sort: "random"})
		assert.ErrorIs(t, err, ErrInvalidSort)
	})

	t.Run("should filter by cuisine difficulty and search", func(t *testing.T) {
		rs, err := svc.ListRecipes(ctx, RecipeFilter{Cuisine: "thai"})
		require.NoError(t, err)
		assert.Len(t, rs, 2)

		rs, err = svc.ListRecipes(ctx, RecipeFilter{Cuisine: "thai", Difficulty: "HARD"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Green Curry"}, titles(rs))

		rs, err = svc.ListRecipes(ctx, RecipeFilter{Search: "noodles"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Pad Thai"}, titles(rs))
	})

	t.Run("should treat wildcards in search as text", func(t *testing.T) {
		got, err := svc.ListRecipes(ctx, RecipeFilter{Search: "%"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("should page with offset", func(t *testing.T) {
		rs, err := svc.ListRecipes(ctx, RecipeFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"Green Curry"}, titles(rs))
	})
}

func TestRecipeServiceLikesAndFeatured(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupRecipeService(t)
	r := createRecipe(t, svc, model.Recipe{Title: "Shakshuka"})
	createRecipe(t, svc, model.Recipe{Title: "Porridge"})

	likes, err := svc.LikeRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)
	likes, err = svc.LikeRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, likes)

	_, err = svc.LikeRecipe(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrRecipeNotFound)

	require.NoError(t, svc.SetFeatured(ctx, r.ID, true))
	featured, err := svc.FeaturedRecipes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "Shakshuka", featured[0].Title)

	require.NoError(t, svc.SetImage(ctx, r.ID, "recipe-pictures/x.png"))
	got, err := svc.GetRecipe(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "recipe-pictures/x.png", got.ImagePath)
	assert.ErrorIs(t, svc.SetImage(ctx, uuid.New(), "k"), model.ErrRecipeNotFound)
}

func TestRecipeServiceComments(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupRecipeService(t)
	r := createRecipe(t, svc, model.Recipe{Title: "Focaccia"})
	other := createRecipe(t, svc, model.Recipe{Title: "Baguette"})

	top, err := svc.AddComment(ctx, r.ID, "ana", "Great crumb", nil)
	require.NoError(t, err)
	reply, err := svc.AddComment(ctx, r.ID, "ben", "Agreed", &top.ID)
	require.NoError(t, err)
	nested, err := svc.AddComment(ctx, r.ID, "cy", "Same", &reply.ID)
	require.NoError(t, err)
	assert.Equal(t, top.ID, *nested.ParentID, "replies stay one level deep")

	t.Run("should return threads with replies", func(t *testing.T) {
		threads, err := svc.Comments(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, threads, 1)
		assert.Equal(t, "Great crumb", threads[0].Body)
		assert.Len(t, threads[0].Replies, 2)
	})

	t.Run("should reject parents from another recipe", func(t *testing.T) {
		otherTop, err := svc.AddComment(ctx, other.ID, "dee", "Crusty", nil)
		require.NoError(t, err)
		_, err = svc.AddComment(ctx, r.ID, "eve", "Hm", &otherTop.ID)
		assert.ErrorIs(t, err, ErrInvalidParent)
	})

	t.Run("should validate input", func(t *testing.T) {
		_, err := svc.AddComment(ctx, r.ID, "", "body", nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.AddComment(ctx, uuid.New(), "a", "b", nil)
		assert.ErrorIs(t, err, model.ErrRecipeNotFound)
		_, err = svc.Comments(ctx, uuid.New())
		assert.ErrorIs(t, err, model.ErrRecipeNotFound)
	})
}

func TestGenerateEmbedding(t *testing.T) {
	a := GenerateEmbedding("spicy tofu noodles")
	b := GenerateEmbedding("Spicy tofu, noodles!")
	assert.Equal(t, a.Slice(), b.Slice())
	assert.Len(t, a.Slice(), model.EmbeddingDimensions)

	var norm float32
	for _, v := range a.Slice() {
		norm += v * v
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
	assert.Equal(t, make([]float32, model.EmbeddingDimensions), GenerateEmbedding("").Slice())
}
