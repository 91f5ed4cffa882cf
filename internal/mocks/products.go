package mocks

import (
	"context"

	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/service"
	"github.com/pantryscout/backend/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of the product service
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Scrape(ctx context.Context, term, zip string) (*service.ScrapeResult, error) {
	args := m.Called(ctx, term, zip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScrapeResult), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductService) List(ctx context.Context, q types.ProductListQuery) ([]model.Product, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) Lookup(ctx context.Context, ingredient string, amount float64, unit string) (*service.IngredientQuote, error) {
	args := m.Called(ctx, ingredient, amount, unit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngredientQuote), args.Error(1)
}
