package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
)

// variantFile is the YAML layout of a variant fixture:
//
//	variants:
//	  - cover_instructions: {...}
//	    article_instructions: {...}
//	    is_active: true
type variantFile struct {
	Variants []variantEntry `yaml:"variants"`
}

type variantEntry struct {
	CoverInstructions   map[string]any `yaml:"cover_instructions"`
	ArticleInstructions map[string]any `yaml:"article_instructions"`
	IsActive            *bool          `yaml:"is_active"`
}

// loadVariants reads a variant fixture. Entries without is_active are active.
func loadVariants(path string, clk clock.TimeProvider) ([]models.SiteConfigVariant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variant file %s: %w", path, err)
	}
	return parseVariants(data, clk)
}

func parseVariants(data []byte, clk clock.TimeProvider) ([]models.SiteConfigVariant, error) {
	var file variantFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse variant file: %w", err)
	}

	out := make([]models.SiteConfigVariant, 0, len(file.Variants))
	for i, entry := range file.Variants {
		v := models.NewVariant(clk, entry.CoverInstructions, entry.ArticleInstructions)
		if entry.IsActive != nil {
			v.IsActive = *entry.IsActive
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
