package sites

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/metrics"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

const entity = "Sites"

// SaveOptions controls the insert path.
type SaveOptions struct {
	// ForceInsert must be set; Save never updates an existing site.
	ForceInsert bool
}

// UpdateOptions controls the update path.
type UpdateOptions struct {
	// Upsert is rejected; Update only targets existing sites.
	Upsert bool
}

// Update lists the fields to change on an existing site.
type Update struct {
	url         *string
	variants    []models.SiteConfigVariant
	variantsSet bool
}

// NewUpdate returns an update that changes nothing.
func NewUpdate() *Update {
	return &Update{}
}

// SetURL changes the site's URL.
func (u *Update) SetURL(url string) *Update {
	u.url = &url
	return u
}

// SetVariants appends variants to the stored history. Calling it with no
// variants clears the history instead.
func (u *Update) SetVariants(variants ...models.SiteConfigVariant) *Update {
	u.variants = append([]models.SiteConfigVariant{}, variants...)
	u.variantsSet = true
	return u
}

func (u *Update) isEmpty() bool {
	return u == nil || (u.url == nil && !u.variantsSet)
}

// Repository reads and writes sites.
type Repository struct {
	store   docstore.Store
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewRepository creates a site repository. metrics may be nil.
func NewRepository(store docstore.Store, log logger.Logger, m *metrics.Metrics) *Repository {
	return &Repository{store: store, log: log, metrics: m}
}

// Save inserts a new site. The provided variant list is normalized so at most
// its first active variant stays active; no stored state is read. A site whose
// URL already exists fails with docstore.ErrDuplicateKey.
func (r *Repository) Save(ctx context.Context, site *models.Site, opts SaveOptions) error {
	if !opts.ForceInsert {
		return &record.OperationError{
			Op: "save", Entity: entity,
			Msg: "sites can only be inserted; set ForceInsert or use Update",
		}
	}
	if site.Variants == nil {
		site.Variants = []models.SiteConfigVariant{}
	}
	EnforceSingleActive(site.Variants)

	if err := site.Validate(); err != nil {
		return fmt.Errorf("save site: %w", err)
	}
	if site.ID.IsZero() {
		site.ID = bson.NewObjectID()
	}
	raw, err := bson.Marshal(site)
	if err != nil {
		return fmt.Errorf("encode site: %w", err)
	}
	if err := r.store.Insert(ctx, models.CollectionSites, raw); err != nil {
		return fmt.Errorf("insert site %s: %w", site.URL, err)
	}
	r.metrics.RecordVariantWrite(metrics.ModeInsert)

	r.log.Info("Site created",
		logger.ObjectID("site_id", site.ID),
		logger.String("url", site.URL),
		logger.Int("variants", len(site.Variants)),
	)
	return nil
}

// Update changes an existing site, identified by ID when set and by URL
// otherwise. A non-empty variant list is appended to the stored history and
// the combined list is normalized and written back whole; an empty list
// clears the history. On success site reflects the written state.
//
// The read of the stored history and the write of the combined list are not
// atomic: a concurrent Update can append between them, and one of the two
// appends is then lost.
func (r *Repository) Update(ctx context.Context, site *models.Site, u *Update, opts UpdateOptions) error {
	if opts.Upsert {
		return &record.OperationError{
			Op: "update", Entity: entity,
			Msg: "sites can only be updated; upsert is not allowed, use Save with ForceInsert",
		}
	}
	if u.isEmpty() {
		return &record.OperationError{Op: "update", Entity: entity, Msg: "update sets no fields"}
	}

	filter := identityFilter(site)
	set := make(map[string]any)
	target := models.Site{ID: site.ID, URL: site.URL}
	if u.url != nil {
		target.URL = *u.url
		set["url"] = *u.url
	}

	if u.variantsSet {
		target.Variants = u.variants
		if len(u.variants) > 0 {
			stored, err := r.find(ctx, filter)
			if err != nil {
				return fmt.Errorf("update site: %w", err)
			}
			target.ID = stored.ID
			target.Variants = append(slices.Clone(stored.Variants), u.variants...)
			EnforceSingleActive(target.Variants)
		}
		set["instructions"] = target.Variants
	}

	if err := validateUpdate(target, u); err != nil {
		return fmt.Errorf("update site: %w", err)
	}

	res, err := r.store.UpdateOne(ctx, models.CollectionSites, filter, docstore.Update{Set: set}, false)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	if res.Matched == 0 {
		return fmt.Errorf("update site %s: %w", describe(site), docstore.ErrNotFound)
	}

	mode := metrics.ModeMerge
	if u.variantsSet && len(u.variants) == 0 {
		mode = metrics.ModeReplace
	}
	if u.variantsSet {
		r.metrics.RecordVariantWrite(mode)
		site.Variants = target.Variants
	}
	if u.url != nil {
		site.URL = *u.url
	}
	if site.ID.IsZero() {
		site.ID = target.ID
	}

	r.log.Debug("Site updated",
		logger.String("url", site.URL),
		logger.String("mode", mode),
		logger.Int("variants", len(site.Variants)),
	)
	return nil
}

// FindByID loads a site.
func (r *Repository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Site, error) {
	return r.find(ctx, docstore.ByID(id))
}

// FindByURL loads a site by its unique URL.
func (r *Repository) FindByURL(ctx context.Context, url string) (*models.Site, error) {
	return r.find(ctx, docstore.Filter{"url": url})
}

// List returns every site.
func (r *Repository) List(ctx context.Context) ([]*models.Site, error) {
	raws, err := r.store.FindMany(ctx, models.CollectionSites, docstore.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	out := make([]*models.Site, 0, len(raws))
	for _, raw := range raws {
		site, decodeErr := decode(raw)
		if decodeErr != nil {
			return nil, decodeErr
		}
		out = append(out, site)
	}
	return out, nil
}

func (r *Repository) find(ctx context.Context, filter docstore.Filter) (*models.Site, error) {
	raw, err := r.store.FindOne(ctx, models.CollectionSites, filter)
	if err != nil {
		return nil, fmt.Errorf("find site: %w", err)
	}
	return decode(raw)
}

func decode(raw bson.Raw) (*models.Site, error) {
	var site models.Site
	if err := bson.Unmarshal(raw, &site); err != nil {
		return nil, fmt.Errorf("decode site: %w", err)
	}
	return &site, nil
}

func identityFilter(site *models.Site) docstore.Filter {
	if !site.ID.IsZero() {
		return docstore.ByID(site.ID)
	}
	return docstore.Filter{"url": site.URL}
}

func describe(site *models.Site) string {
	if !site.ID.IsZero() {
		return site.ID.Hex()
	}
	return site.URL
}

// validateUpdate checks only the fields the update writes.
func validateUpdate(target models.Site, u *Update) error {
	var results []schema.Result
	if u.url != nil {
		results = append(results,
			schema.Required("url", target.URL),
			schema.Pattern("url", target.URL, schema.URLPattern),
		)
	}
	if u.variantsSet {
		for i, v := range target.Variants {
			results = append(results, schema.Nested(fmt.Sprintf("instructions.%d", i), v.Validate()))
		}
	}
	return schema.Check(entity, results...)
}
