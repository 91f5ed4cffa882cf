package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/service"
	"github.com/pantryscout/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	return testhelpers.SetupPostgres(t, "../../migrations")
}

func TestRecipesOnPostgres(t *testing.T) {
	db := setupPostgres(t)
	recipes := service.NewRecipeService(db)
	ctx := context.Background()

	seed := []*model.Recipe{
		{Title: "Tofu Stir Fry", Cuisine: "Chinese", Tags: model.TagList{"vegan", "quick"},
			Ingredients: model.IngredientList{{Name: "tofu"}, {Name: "soy sauce"}}},
		{Title: "Chicken Tikka", Cuisine: "Indian", Tags: model.TagList{"spicy"},
			Ingredients: model.IngredientList{{Name: "chicken"}, {Name: "yogurt"}}},
		{Title: "Mapo Tofu", Cuisine: "Chinese", Tags: model.TagList{"spicy"},
			Ingredients: model.IngredientList{{Name: "tofu"}, {Name: "pork"}}},
	}
	for _, r := range seed {
		_, err := recipes.CreateRecipe(ctx, r)
		require.NoError(t, err)
	}

	t.Run("should reject a duplicate title through the unique index", func(t *testing.T) {
		_, err := recipes.CreateRecipe(ctx, &model.Recipe{Title: "tofu stir fry"})
		assert.True(t, errors.Is(err, model.ErrDuplicateRecipe))
	})

	t.Run("should enforce case-insensitive titles in the index", func(t *testing.T) {
		err := db.Create(&model.Recipe{Title: "MAPO TOFU"}).Error
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})

	t.Run("should search jsonb columns and order by similarity", func(t *testing.T) {
		got, err := recipes.ListRecipes(ctx, service.RecipeFilter{Search: "tofu"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, r := range got {
			assert.Contains(t, r.Title, "Tofu")
		}
	})

	t.Run("should honour an explicit sort while searching", func(t *testing.T) {
		_, err := recipes.LikeRecipe(ctx, seed[2].ID)
		require.NoError(t, err)

		got, err := recipes.ListRecipes(ctx, service.RecipeFilter{Search: "tofu", Sort: service.SortPopular})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Mapo Tofu", got[0].Title)
	})

	t.Run("should cascade comment deletion", func(t *testing.T) {
		_, err := recipes.AddComment(ctx, seed[1].ID, "ana", "lovely", nil)
		require.NoError(t, err)

		require.NoError(t, db.Delete(&model.Recipe{}, "id = ?", seed[1].ID).Error)

		var count int64
		require.NoError(t, db.Model(&model.Comment{}).Where("recipe_id = ?", seed[1].ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestProductsOnPostgres(t *testing.T) {
	db := setupPostgres(t)
	products := service.NewProductService(db, nil)
	ctx := context.Background()

	t.Run("should enforce the product identity", func(t *testing.T) {
		p := &model.Product{Provider: "kroger", ItemName: "Firm Tofu", Brand: "Nasoya", Price: 2.49, UnitAmountOz: 14}
		require.NoError(t, products.Create(ctx, p))

		dup := &model.Product{Provider: "kroger", ItemName: "Firm Tofu", Brand: "Nasoya", Price: 2.29, UnitAmountOz: 14}
		assert.True(t, errors.Is(products.Create(ctx, dup), model.ErrDuplicateProduct))
	})
}
