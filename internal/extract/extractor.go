// Package extract turns a rendered detail page into a PropertyRecord.
//
// Extraction runs an ordered chain of strategies over an immutable document
// snapshot. Each strategy produces a partial record; the chain folds them
// left to right and a later strategy only fills fields an earlier one left
// unknown.
package extract

import (
	"fmt"

	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
	"github.com/rs/zerolog/log"
)

// Strategy is one extraction pass
type Strategy struct {
	Name  string
	Apply func(doc *render.Document) listing.PropertyRecord
}

// Extractor applies its strategies in order
type Extractor struct {
	strategies []Strategy
}

// New builds the default chain for profile: structural, description, content-lines
func New(profile *site.Profile) *Extractor {
	if profile == nil {
		profile = site.DefaultProfile()
	}
	sel := profile.Detail
	return &Extractor{
		strategies: []Strategy{
			{Name: "structural", Apply: func(doc *render.Document) listing.PropertyRecord {
				return structural(doc, sel)
			}},
			{Name: "description", Apply: func(doc *render.Document) listing.PropertyRecord {
				return description(doc, sel)
			}},
			{Name: "content-lines", Apply: func(doc *render.Document) listing.PropertyRecord {
				return contentLines(doc, sel)
			}},
		},
	}
}

// NewWithStrategies builds an extractor over a custom chain
func NewWithStrategies(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Strategies returns the strategy names in application order
func (e *Extractor) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Extract never fails. Fields no strategy resolves stay unknown.
func (e *Extractor) Extract(doc *render.Document, link string) listing.PropertyRecord {
	rec := listing.New(link)
	if doc == nil {
		return rec
	}

	for _, s := range e.strategies {
		partial, err := apply(s, doc)
		if err != nil {
			log.Warn().
				Err(err).
				Str("strategy", s.Name).
				Str("url", link).
				Msg("Extraction strategy failed")
			continue
		}
		rec.Fill(partial)
	}

	rec.SourceLink = link

	log.Debug().
		Str("url", link).
		Int("resolved_fields", rec.Resolved()).
		Msg("Extracted listing")

	return rec
}

func apply(s Strategy, doc *render.Document) (rec listing.PropertyRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in strategy %s: %v", s.Name, r)
		}
	}()
	return s.Apply(doc), nil
}

// WaitTargets lists the late-rendered elements worth waiting for before a
// snapshot. The description fallback is read from the snapshot only.
func WaitTargets(profile *site.Profile) []render.Query {
	if profile == nil {
		profile = site.DefaultProfile()
	}
	var targets []render.Query
	if profile.Detail.DescriptionPath != "" {
		targets = append(targets, render.XPath(profile.Detail.DescriptionPath))
	}
	if profile.Detail.ContentPath != "" {
		targets = append(targets, render.XPath(profile.Detail.ContentPath))
	}
	return targets
}
