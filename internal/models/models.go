// Package models defines the persisted entities of the scan registry.
package models

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
)

// Collection names.
const (
	CollectionSites              = "sites"
	CollectionPeers              = "peers"
	CollectionServerInstructions = "server_instructions"
	CollectionScans              = "scans"
	CollectionScanSettings       = "scan_settings"
	CollectionWebDocuments       = "web_documents"
)

// CollectionIndexes lists the indexes of one collection.
type CollectionIndexes struct {
	Collection string
	Indexes    []docstore.Index
}

// Indexes returns every index the registry relies on.
func Indexes() []CollectionIndexes {
	return []CollectionIndexes{
		{Collection: CollectionSites, Indexes: []docstore.Index{{Field: "url", Unique: true}}},
		{Collection: CollectionPeers, Indexes: []docstore.Index{{Field: "name", Unique: true}}},
		{Collection: CollectionServerInstructions, Indexes: []docstore.Index{{Field: "site"}}},
		{Collection: CollectionScans, Indexes: []docstore.Index{{Field: "site"}}},
		{Collection: CollectionScanSettings, Indexes: []docstore.Index{{Field: "site"}}},
		{Collection: CollectionWebDocuments, Indexes: []docstore.Index{{Field: "scan"}}},
	}
}

// EnsureIndexes creates every index returned by Indexes.
func EnsureIndexes(ctx context.Context, store docstore.Store) error {
	for _, ci := range Indexes() {
		if err := store.EnsureIndexes(ctx, ci.Collection, ci.Indexes); err != nil {
			return fmt.Errorf("ensure indexes for %s: %w", ci.Collection, err)
		}
	}
	return nil
}

// track snapshots a freshly constructed entity. Model types always encode.
func track(doc record.Document) {
	_ = record.Track(doc)
}
