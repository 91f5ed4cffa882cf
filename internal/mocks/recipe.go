package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockRecipeService is a mock implementation of the recipe service
type MockRecipeService struct {
	mock.Mock
}

// CreateRecipe mocks the CreateRecipe method
func (m *MockRecipeService) CreateRecipe(ctx context.Context, recipe *model.Recipe) (*model.Recipe, error) {
	args := m.Called(ctx, recipe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Recipe), args.Error(1)
}

// GetRecipe mocks the GetRecipe method
func (m *MockRecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Recipe), args.Error(1)
}

// ListRecipes mocks the ListRecipes method
func (m *MockRecipeService) ListRecipes(ctx context.Context, filter service.RecipeFilter) ([]model.Recipe, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Recipe), args.Error(1)
}

// FeaturedRecipes mocks the FeaturedRecipes method
func (m *MockRecipeService) FeaturedRecipes(ctx context.Context, limit int) ([]model.Recipe, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Recipe), args.Error(1)
}

// LikeRecipe mocks the LikeRecipe method
func (m *MockRecipeService) LikeRecipe(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

// AddComment mocks the AddComment method
func (m *MockRecipeService) AddComment(ctx context.Context, recipeID uuid.UUID, author, body string, parentID *uuid.UUID) (*model.Comment, error) {
	args := m.Called(ctx, recipeID, author, body, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

// Comments mocks the Comments method
func (m *MockRecipeService) Comments(ctx context.Context, recipeID uuid.UUID) ([]model.Comment, error) {
	args := m.Called(ctx, recipeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

// MockRecipeGenerator is a mock implementation of the recipe generator
type MockRecipeGenerator struct {
	mock.Mock
}

// Generate mocks the Generate method
func (m *MockRecipeGenerator) Generate(ctx context.Context, query string) (*service.GeneratedRecipe, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GeneratedRecipe), args.Error(1)
}
