// Package sites persists sites and keeps a single active configuration
// variant in each site's history.
package sites

import "github.com/jonesrussell/north-cloud/scan-registry/internal/models"

// EnforceSingleActive keeps the first active variant and forces every later
// one inactive. A list without an active variant is left unchanged. The list
// is modified in place.
func EnforceSingleActive(variants []models.SiteConfigVariant) {
	seen := false
	for i := range variants {
		if seen {
			variants[i].IsActive = false
			continue
		}
		if variants[i].IsActive {
			seen = true
		}
	}
}
