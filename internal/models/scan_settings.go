package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

// Scan settings defaults.
const (
	DefaultNumLevels = -1
	DefaultMinSpan   = 5
	DefaultMaxSpan   = 60
	DefaultMaxLinks  = 100
	// DefaultMaxSize is in KB.
	DefaultMaxSize = 1024
	DefaultParser  = "html5lib"
)

// ScanSettings is the scraping context applied to every scan of a site.
type ScanSettings struct {
	record.Base `bson:",inline"`

	Site      bson.ObjectID   `bson:"site"`
	NumLevels int             `bson:"num_levels"`
	MinSpan   int             `bson:"min_span"`
	MaxSpan   int             `bson:"max_span"`
	MaxLinks  int             `bson:"max_links"`
	MaxSize   int             `bson:"max_size"`
	Parser    string          `bson:"parser"`
	MimeTypes []string        `bson:"mime_types"`
	IsActive  bool            `bson:"is_active"`
	Created   time.Time       `bson:"created"`
	Scans     []bson.ObjectID `bson:"scans"`
}

// NewScanSettings returns tracked settings with their defaults.
func NewScanSettings(clk clock.TimeProvider, site bson.ObjectID) *ScanSettings {
	s := &ScanSettings{
		Site:      site,
		NumLevels: DefaultNumLevels,
		MinSpan:   DefaultMinSpan,
		MaxSpan:   DefaultMaxSpan,
		MaxLinks:  DefaultMaxLinks,
		MaxSize:   DefaultMaxSize,
		Parser:    DefaultParser,
		MimeTypes: []string{"text/html"},
		IsActive:  true,
		Created:   clk.Now(),
	}
	track(s)
	return s
}

func (s *ScanSettings) Collection() string    { return CollectionScanSettings }
func (s *ScanSettings) UniqueLists() []string { return []string{"scans"} }

// Validate checks the settings schema.
func (s *ScanSettings) Validate() error {
	return schema.Check("ScanSettings",
		schema.RequiredID("site", s.Site),
	)
}
