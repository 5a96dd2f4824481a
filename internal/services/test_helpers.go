package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cardash/internal/dataprocessing"
)

// MockDatasetLoader is a mock for the DatasetLoader interface
type MockDatasetLoader struct {
	mock.Mock
}

func (m *MockDatasetLoader) Load(ctx context.Context, path string) (*dataprocessing.LoadResult, error) {
	args := m.Called(ctx, path)
	if res := args.Get(0); res != nil {
		return res.(*dataprocessing.LoadResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockClientCounter is a mock for the ClientCounter interface
type MockClientCounter struct {
	mock.Mock
}

func (m *MockClientCounter) ClientCount() int {
	return m.Called().Int(0)
}
