package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pantryscout/backend/internal/types"
	"github.com/stretchr/testify/mock"
)

// MockTokenService is a mock implementation of the token service
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(subject string, scopes []string, ttl time.Duration) (string, error) {
	args := m.Called(subject, scopes, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

// MockPictureService is a mock implementation of the picture service
type MockPictureService struct {
	mock.Mock
}

func (m *MockPictureService) Upload(ctx context.Context, recipeID uuid.UUID, filename string, r io.Reader) (string, string, error) {
	args := m.Called(ctx, recipeID, filename, r)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockPictureService) PresignedURL(ctx context.Context, recipeID uuid.UUID, expiration time.Duration) (string, error) {
	args := m.Called(ctx, recipeID, expiration)
	return args.String(0), args.Error(1)
}
