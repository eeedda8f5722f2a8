package mocks

import (
	"context"

	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/stretchr/testify/mock"
)

// MockSink is a mock implementation of the dataset sink
type MockSink struct {
	mock.Mock
}

// Load mocks the Load method
func (m *MockSink) Load(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Append mocks the Append method
func (m *MockSink) Append(ctx context.Context, rec listing.PropertyRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// Flush mocks the Flush method
func (m *MockSink) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Len mocks the Len method
func (m *MockSink) Len() int {
	args := m.Called()
	return args.Int(0)
}

// MockCheckpoint is a mock implementation of the checkpoint store
type MockCheckpoint struct {
	mock.Mock
}

// Load mocks the Load method
func (m *MockCheckpoint) Load(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

// Save mocks the Save method
func (m *MockCheckpoint) Save(ctx context.Context, page int) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}
