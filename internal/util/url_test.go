package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrigin(t *testing.T) {
	origin, err := Origin("https://nigeriapropertycentre.com/for-sale/lagos?selectedLoc=1")
	require.NoError(t, err)
	assert.Equal(t, "https://nigeriapropertycentre.com", origin)

	_, err = Origin("/for-sale/lagos")
	assert.Error(t, err)

	_, err = Origin("://bad")
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	base := "https://nigeriapropertycentre.com/for-sale/lagos?page=2"

	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{
			name:     "root_relative",
			href:     "/for-sale/houses/123-duplex",
			expected: "https://nigeriapropertycentre.com/for-sale/houses/123-duplex",
		},
		{
			name:     "absolute",
			href:     "https://example.com/listing/1",
			expected: "https://example.com/listing/1",
		},
		{
			name:     "fragment_dropped",
			href:     "/for-sale/houses/123-duplex#photos",
			expected: "https://nigeriapropertycentre.com/for-sale/houses/123-duplex",
		},
		{
			name:     "query_kept",
			href:     "/for-sale/lagos?page=3",
			expected: "https://nigeriapropertycentre.com/for-sale/lagos?page=3",
		},
		{
			name:     "empty",
			href:     "  ",
			expected: "",
		},
		{
			name:     "fragment_only",
			href:     "#top",
			expected: "",
		},
		{
			name:     "javascript",
			href:     "javascript:void(0)",
			expected: "",
		},
		{
			name:     "tel",
			href:     "tel:08012345678",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveURL(base, tt.href))
		})
	}
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		name     string
		search   string
		page     int
		expected string
	}{
		{
			name:     "first_page_unchanged",
			search:   "https://example.com/for-sale?q=lagos",
			page:     1,
			expected: "https://example.com/for-sale?q=lagos",
		},
		{
			name:     "existing_query",
			search:   "https://example.com/for-sale?q=lagos",
			page:     7,
			expected: "https://example.com/for-sale?q=lagos&page=7",
		},
		{
			name:     "no_query",
			search:   "https://example.com/for-sale",
			page:     2,
			expected: "https://example.com/for-sale?page=2",
		},
		{
			name:     "non_positive",
			search:   "https://example.com/for-sale",
			page:     0,
			expected: "https://example.com/for-sale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PageURL(tt.search, tt.page))
		})
	}
}

func TestIsSignificantRedirect(t *testing.T) {
	tests := []struct {
		name     string
		original string
		redirect string
		expected bool
	}{
		{
			name:     "no_redirect",
			original: "https://example.com/listing/1",
			redirect: "",
			expected: false,
		},
		{
			name:     "http_to_https",
			original: "http://example.com/listing/1",
			redirect: "https://example.com/listing/1",
			expected: false,
		},
		{
			name:     "www_and_trailing_slash",
			original: "https://www.example.com/listing/1/",
			redirect: "https://example.com/listing/1",
			expected: false,
		},
		{
			name:     "default_port",
			original: "https://example.com:443/listing/1",
			redirect: "https://example.com/listing/1",
			expected: false,
		},
		{
			name:     "withdrawn_listing_to_search",
			original: "https://example.com/listing/1",
			redirect: "https://example.com/for-sale",
			expected: true,
		},
		{
			name:     "different_domain",
			original: "https://example.com/listing/1",
			redirect: "https://other.com/listing/1",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSignificantRedirect(tt.original, tt.redirect))
		})
	}
}
