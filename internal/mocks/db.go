package mocks

import (
	"context"

	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/stretchr/testify/mock"
)

// MockMirror is a mock implementation of a listing mirror
type MockMirror struct {
	mock.Mock
}

// UpsertListing mocks the UpsertListing method
func (m *MockMirror) UpsertListing(ctx context.Context, runID string, rec listing.PropertyRecord) error {
	args := m.Called(ctx, runID, rec)
	return args.Error(0)
}
