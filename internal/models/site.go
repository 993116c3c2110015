package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

// SiteConfigVariant is one version of a site's crawler instructions.
type SiteConfigVariant struct {
	CoverInstructions   map[string]any `bson:"cover_instructions" yaml:"cover_instructions"`
	ArticleInstructions map[string]any `bson:"article_instructions" yaml:"article_instructions"`
	Created             time.Time      `bson:"created" yaml:"created"`
	Updated             *time.Time     `bson:"updated,omitempty" yaml:"updated,omitempty"`
	IsActive            bool           `bson:"is_active" yaml:"is_active"`
}

// NewVariant returns an active variant stamped with the current time.
func NewVariant(clk clock.TimeProvider, cover, article map[string]any) SiteConfigVariant {
	return SiteConfigVariant{
		CoverInstructions:   cover,
		ArticleInstructions: article,
		Created:             clk.Now(),
		IsActive:            true,
	}
}

// Validate checks the variant schema.
func (v SiteConfigVariant) Validate() error {
	return schema.Check("SiteConfigVariant",
		schema.RequiredMap("cover_instructions", v.CoverInstructions),
		schema.RequiredMap("article_instructions", v.ArticleInstructions),
	)
}

// Site is a website to be scanned together with the history of its crawler
// configuration. Sites are written only through the sites repository.
type Site struct {
	ID       bson.ObjectID       `bson:"_id,omitempty"`
	URL      string              `bson:"url"`
	Variants []SiteConfigVariant `bson:"instructions"`
}

// Validate checks the site and every embedded variant.
func (s *Site) Validate() error {
	results := []schema.Result{
		schema.Required("url", s.URL),
		schema.Pattern("url", s.URL, schema.URLPattern),
	}
	for i, v := range s.Variants {
		results = append(results, schema.Nested(fmt.Sprintf("instructions.%d", i), v.Validate()))
	}
	return schema.Check("Sites", results...)
}

// ActiveVariant returns the active variant, if any.
func (s *Site) ActiveVariant() (SiteConfigVariant, bool) {
	for _, v := range s.Variants {
		if v.IsActive {
			return v, true
		}
	}
	return SiteConfigVariant{}, false
}
