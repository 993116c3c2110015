package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

// WebContent is one version of the content scraped from a page.
type WebContent struct {
	URL     string     `bson:"url"`
	Title   string     `bson:"title,omitempty"`
	Version string     `bson:"version"`
	Content string     `bson:"content,omitempty"`
	Created time.Time  `bson:"created"`
	Updated *time.Time `bson:"updated,omitempty"`
}

// NewWebContent returns a content version stamped with the current time.
func NewWebContent(clk clock.TimeProvider, url, version string) WebContent {
	return WebContent{URL: url, Version: version, Created: clk.Now()}
}

// Validate checks the content schema.
func (c WebContent) Validate() error {
	return schema.Check("WebContent",
		schema.Required("url", c.URL),
		schema.Pattern("url", c.URL, schema.URLPattern),
		schema.Required("version", c.Version),
		schema.Pattern("version", c.Version, schema.VersionPattern),
	)
}

// WebDocument is a scraped page and its place in the page hierarchy. Setting
// Parent does not add the document to the parent's Children.
type WebDocument struct {
	record.Base `bson:",inline"`

	Site     bson.ObjectID   `bson:"site"`
	Scan     bson.ObjectID   `bson:"scan"`
	Parent   bson.ObjectID   `bson:"parent,omitempty"`
	Children []bson.ObjectID `bson:"children"`
	Content  []WebContent    `bson:"content"`
	URL      string          `bson:"url"`
	SiteURL  string          `bson:"site_url"`
	Level    *int            `bson:"level,omitempty"`
	NumNode  *int            `bson:"num_node,omitempty"`
	IsCover  bool            `bson:"is_cover"`
	Created  time.Time       `bson:"created"`
	Updated  *time.Time      `bson:"updated,omitempty"`
}

// NewWebDocument returns a tracked, empty document.
func NewWebDocument(clk clock.TimeProvider) *WebDocument {
	d := &WebDocument{Created: clk.Now()}
	track(d)
	return d
}

func (d *WebDocument) Collection() string    { return CollectionWebDocuments }
func (d *WebDocument) UniqueLists() []string { return []string{"children"} }

// SetPosition records the document's level and node number in the hierarchy.
func (d *WebDocument) SetPosition(level, numNode int) {
	d.Level = &level
	d.NumNode = &numNode
}

// Validate checks the document and every embedded content version.
func (d *WebDocument) Validate() error {
	results := []schema.Result{
		schema.RequiredID("site", d.Site),
		schema.RequiredID("scan", d.Scan),
		schema.Required("url", d.URL),
		schema.Pattern("url", d.URL, schema.URLPattern),
		schema.Required("site_url", d.SiteURL),
		schema.Pattern("site_url", d.SiteURL, schema.URLPattern),
		schema.RequiredPtr("level", d.Level),
		schema.RequiredPtr("num_node", d.NumNode),
	}
	for i, c := range d.Content {
		results = append(results, schema.Nested(fmt.Sprintf("content.%d", i), c.Validate()))
	}
	return schema.Check("WebDocuments", results...)
}
