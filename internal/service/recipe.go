package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pantryscout/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Recipe list sort orders
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"

	DefaultRecipeLimit = 20
	MaxRecipeLimit     = 100
)

// RecipeFilter selects and orders recipes for listing
type RecipeFilter struct {
	Sort       string
	Limit      int
	Offset     int
	Search     string
	Cuisine    string
	Difficulty string
}

// RecipeService handles recipe operations
type RecipeService struct {
	db *gorm.DB
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// CreateRecipe stores a recipe. Titles are unique regardless of case.
func (s *RecipeService) CreateRecipe(ctx context.Context, recipe *model.Recipe) (*model.Recipe, error) {
	recipe.Title = strings.TrimSpace(recipe.Title)
	if recipe.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Where("LOWER(title) = ?", strings.ToLower(recipe.Title)).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check recipe title: %w", err)
	}
	if count > 0 {
		return nil, model.ErrDuplicateRecipe
	}

	recipe.ID = uuid.Nil
	recipe.Likes = 0
	recipe.Comments = nil
	// featuring and pictures go through SetFeatured and the picture upload
	recipe.Featured = false
	recipe.ImagePath = ""
	recipe.Embedding = GenerateEmbedding(recipe.SearchText())

	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, model.ErrDuplicateRecipe
		}
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}
	return recipe, nil
}

// GetRecipe retrieves a recipe by ID
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// ListRecipes returns a page of recipes. On Postgres a search term also
// orders results by embedding distance unless an explicit sort is given.
func (s *RecipeService) ListRecipes(ctx context.Context, f RecipeFilter) ([]model.Recipe, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultRecipeLimit
	}
	if f.Limit > MaxRecipeLimit {
		f.Limit = MaxRecipeLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := s.db.WithContext(ctx).Model(&model.Recipe{})
	if f.Cuisine != "" {
		query = query.Where("LOWER(cuisine) = ?", strings.ToLower(f.Cuisine))
	}
	if f.Difficulty != "" {
		query = query.Where("LOWER(difficulty) = ?", strings.ToLower(f.Difficulty))
	}

	similarity := false
	search := strings.TrimSpace(f.Search)
	if search != "" {
		like := containsPattern(search)
		if s.db.Dialector.Name() == "postgres" {
			query = query.Where("LOWER(title) LIKE ? "+likeEscape+" OR LOWER(cuisine) LIKE ? "+likeEscape+
				" OR LOWER(tags::text) LIKE ? "+likeEscape+" OR LOWER(ingredients::text) LIKE ? "+likeEscape,
				like, like, like, like)
			if f.Sort == "" {
				// nearest embeddings first, then newest; no other Order may follow this expression
				query = query.Order(clause.OrderBy{Expression: clause.Expr{
					SQL:  "embedding <-> ?, created_at DESC",
					Vars: []interface{}{GenerateEmbedding(search)},
				}})
				similarity = true
			}
		} else {
			query = query.Where("LOWER(title) LIKE ? "+likeEscape+" OR LOWER(cuisine) LIKE ? "+likeEscape+
				" OR LOWER(tags) LIKE ? "+likeEscape+" OR LOWER(ingredients) LIKE ? "+likeEscape,
				like, like, like, like)
		}
	}

	switch f.Sort {
	case "":
		if !similarity {
			query = query.Order("created_at DESC")
		}
	case SortNewest:
		query = query.Order("created_at DESC")
	case SortOldest:
		query = query.Order("created_at ASC")
	case SortPopular:
		query = query.Order("likes DESC").Order("created_at DESC")
	default:
		return nil, fmt.Errorf("%w: %q (use %s, %s or %s)", ErrInvalidSort, f.Sort, SortPopular, SortNewest, SortOldest)
	}

	var recipes []model.Recipe
	if err := query.Limit(f.Limit).Offset(f.Offset).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// FeaturedRecipes returns featured recipes, most liked first
func (s *RecipeService) FeaturedRecipes(ctx context.Context, limit int) ([]model.Recipe, error) {
	if limit <= 0 || limit > MaxRecipeLimit {
		limit = DefaultRecipeLimit
	}
	var recipes []model.Recipe
	if err := s.db.WithContext(ctx).
		Where("featured = ?", true).
		Order("likes DESC").Order("created_at DESC").
		Limit(limit).
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list featured recipes: %w", err)
	}
	return recipes, nil
}

// LikeRecipe increments the like counter and returns the new count
func (s *RecipeService) LikeRecipe(ctx context.Context, id uuid.UUID) (int, error) {
	res := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to like recipe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, model.ErrRecipeNotFound
	}

	var recipe model.Recipe
	if err := s.db.WithContext(ctx).Select("likes").First(&recipe, "id = ?", id).Error; err != nil {
		return 0, fmt.Errorf("failed to read likes: %w", err)
	}
	return recipe.Likes, nil
}

// SetFeatured marks or unmarks a recipe as featured
func (s *RecipeService) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	res := s.db.WithContext(ctx).Model(&model.Recipe{}).Where("id = ?", id).UpdateColumn("featured", featured)
	if res.Error != nil {
		return fmt.Errorf("failed to update recipe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrRecipeNotFound
	}
	return nil
}

// SetImage records the object key of a recipe's picture
func (s *RecipeService) SetImage(ctx context.Context, id uuid.UUID, path string) error {
	res := s.db.WithContext(ctx).Model(&model.Recipe{}).Where("id = ?", id).UpdateColumn("image_path", path)
	if res.Error != nil {
		return fmt.Errorf("failed to update recipe image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrRecipeNotFound
	}
	return nil
}

// AddComment stores a comment. Replies to replies are attached to the
// top-level comment so threads stay one level deep.
func (s *RecipeService) AddComment(ctx context.Context, recipeID uuid.UUID, author, body string, parentID *uuid.UUID) (*model.Comment, error) {
	author, body = strings.TrimSpace(author), strings.TrimSpace(body)
	if author == "" || body == "" {
		return nil, fmt.Errorf("%w: author and body are required", ErrInvalidInput)
	}
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	comment := &model.Comment{RecipeID: recipeID, Author: author, Body: body}
	if parentID != nil {
		var parent model.Comment
		err := s.db.WithContext(ctx).First(&parent, "id = ? AND recipe_id = ?", *parentID, recipeID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidParent
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load parent comment: %w", err)
		}
		top := parent.ID
		if parent.ParentID != nil {
			top = *parent.ParentID
		}
		comment.ParentID = &top
	}

	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// Comments returns a recipe's top-level comments, oldest first, each with
// its replies
func (s *RecipeService) Comments(ctx context.Context, recipeID uuid.UUID) ([]model.Comment, error) {
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return nil, err
	}

	var all []model.Comment
	if err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at ASC").
		Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	index := make(map[uuid.UUID]int)
	threads := make([]model.Comment, 0, len(all))
	for _, c := range all {
		if c.ParentID == nil {
			index[c.ID] = len(threads)
			threads = append(threads, c)
		}
	}
	for _, c := range all {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	return threads, nil
}
