package service

import (
	"context"
	"encoding/json"

	"github.com/pantryscout/backend/internal/retailer"
	"github.com/stretchr/testify/mock"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) GenerateJSON(ctx context.Context, prompt string, out interface{}) error {
	args := m.Called(ctx, prompt, out)
	return args.Error(0)
}

// respond decodes body into the GenerateJSON target
func respond(body string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		if err := json.Unmarshal([]byte(body), args.Get(2)); err != nil {
			panic(err)
		}
	}
}

type fakeProvider struct {
	name     string
	products []retailer.RawProduct
	err      error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, term, zip string) ([]retailer.RawProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}
