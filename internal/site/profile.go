// Package site holds the site-specific selectors and structural paths the
// crawler uses, loadable from a YAML profile.
package site

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile validation errors.
var (
	ErrMissingListingSelector = errors.New("index.listing is required")
	ErrMissingDetailLink      = errors.New("index.detail_link is required")
	ErrMissingNextPage        = errors.New("index.next_page is required")
	ErrMissingContentPath     = errors.New("detail.content_path is required")
)

// Profile bundles every selector the walker and the extractor rely on
type Profile struct {
	Index  IndexSelectors  `yaml:"index"`
	Detail DetailSelectors `yaml:"detail"`
}

// IndexSelectors locate listing entries and pagination on an index page
type IndexSelectors struct {
	Listing    string `yaml:"listing"`
	DetailLink string `yaml:"detail_link"`
	NextPage   string `yaml:"next_page"`
}

// DetailSelectors locate fields on a detail page
type DetailSelectors struct {
	Title               string   `yaml:"title"`
	Address             string   `yaml:"address"`
	Price               string   `yaml:"price"`
	PhoneLink           string   `yaml:"phone_link"`
	MarketedBy          string   `yaml:"marketed_by"`
	PhotoCount          string   `yaml:"photo_count"`
	SpecRows            string   `yaml:"spec_rows"`
	DescriptionPath     string   `yaml:"description_path"`
	DescriptionFallback string   `yaml:"description_fallback"`
	ContentPath         string   `yaml:"content_path"`
	Localities          []string `yaml:"localities"`
	ContactBoilerplate  []string `yaml:"contact_boilerplate"`
}

// DefaultProfile returns the selectors for nigeriapropertycentre.com
func DefaultProfile() *Profile {
	return &Profile{
		Index: IndexSelectors{
			Listing:    ".wp-block-content",
			DetailLink: "a:has(h4.content-title)",
			NextPage:   "a.pagination-next, a[rel='next']",
		},
		Detail: DetailSelectors{
			Title:               "h1.content-title, h4.content-title",
			Address:             "address",
			Price:               "span.price",
			PhoneLink:           "a[href*='tel:']",
			MarketedBy:          "span.marketed-by",
			PhotoCount:          "span.image-count",
			SpecRows:            ".wp-block-table table tr, .specifications tr",
			DescriptionPath:     "/html/body/div[1]/div[2]/section/div/div/div/div[1]/div[2]/div[4]/div/div/div/div[1]/div",
			DescriptionFallback: "div[itemprop='description']",
			ContentPath:         "/html/body/div[1]/div[2]/section/div/div/div/div[1]/div[2]",
			Localities:          []string{"Lagos", "Lekki", "Ikoyi"},
			ContactBoilerplate:  []string{"Call", "Show Phone"},
		},
	}
}

// LoadProfile reads a YAML profile on top of the defaults.
// An empty path returns the defaults.
func LoadProfile(path string) (*Profile, error) {
	profile := DefaultProfile()
	if strings.TrimSpace(path) == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site profile: %w", err)
	}

	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse site profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site profile %s: %w", path, err)
	}

	return profile, nil
}

// Validate checks the selectors the crawl cannot run without
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Index.Listing) == "" {
		return ErrMissingListingSelector
	}
	if strings.TrimSpace(p.Index.DetailLink) == "" {
		return ErrMissingDetailLink
	}
	if strings.TrimSpace(p.Index.NextPage) == "" {
		return ErrMissingNextPage
	}
	if strings.TrimSpace(p.Detail.ContentPath) == "" {
		return ErrMissingContentPath
	}
	return nil
}
