package mocks

import (
	"context"

	"github.com/Harvey-AU/property-crawler/internal/crawler"
	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/stretchr/testify/mock"
)

// MockWalker is a mock implementation of the index walker
type MockWalker struct {
	mock.Mock
}

// ListPage mocks the ListPage method
func (m *MockWalker) ListPage(ctx context.Context, number int, target string) (*crawler.IndexPage, error) {
	args := m.Called(ctx, number, target)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*crawler.IndexPage), args.Error(1)
}

// MockFetcher is a mock implementation of the detail fetcher
type MockFetcher struct {
	mock.Mock
}

// FetchRecord mocks the FetchRecord method
func (m *MockFetcher) FetchRecord(ctx context.Context, url string) (listing.PropertyRecord, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(listing.PropertyRecord), args.Error(1)
}

// MockPacer is a mock implementation of the politeness pacer
type MockPacer struct {
	mock.Mock
}

// Pause mocks the Pause method
func (m *MockPacer) Pause(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
