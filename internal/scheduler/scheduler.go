// Package scheduler builds server instructions from operator input and
// enforces the per-site coexistence rules between them.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/daytime"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/events"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/metrics"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
)

// maxInstructionsPerSite caps the instructions stored for one site.
const maxInstructionsPerSite = 2

// ErrInvalidInstruction is returned when a request is malformed.
var ErrInvalidInstruction = errors.New("invalid instruction")

// Request describes an instruction to create.
type Request struct {
	Operation models.Operation
	Site      bson.ObjectID
	// StopAt is required for STOP and STOP AND RUN.
	StopAt *time.Time
	// Times are "HH:MM:SS" strings, required for RUN and STOP AND RUN.
	Times []string
	// Weekdays run from 0 (Monday) to 6, required for RUN and STOP AND RUN.
	Weekdays []int
	// ExcludeDates is optional; nil means not provided, while a non-nil
	// empty slice is rejected.
	ExcludeDates []time.Time
}

// EventPublisher receives instruction lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.InstructionEvent) error
}

// Scheduler creates and maintains server instructions.
type Scheduler struct {
	records   *record.Repository
	store     docstore.Store
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       logger.Logger
}

// New creates a scheduler. publisher and m may be nil.
func New(records *record.Repository, publisher EventPublisher, m *metrics.Metrics, log logger.Logger) *Scheduler {
	return &Scheduler{
		records:   records,
		store:     records.Store(),
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// CreateInstruction validates and normalizes req, checks it against the
// instructions already stored for the site and persists it. It returns the
// new instruction's identity.
func (s *Scheduler) CreateInstruction(ctx context.Context, req Request) (bson.ObjectID, error) {
	inst, err := s.build(ctx, req)
	if err != nil {
		return bson.ObjectID{}, err
	}

	existing, err := s.List(ctx, req.Site)
	if err != nil {
		return bson.ObjectID{}, err
	}
	if conflict := checkCoexistence(req.Site, req.Operation, existing); conflict != nil {
		s.metrics.RecordConflict(string(req.Operation))
		return bson.ObjectID{}, conflict
	}

	if err := s.records.Save(ctx, inst); err != nil {
		return bson.ObjectID{}, fmt.Errorf("create %s instruction for site %s: %w", inst.Operation, req.Site.Hex(), err)
	}
	s.metrics.RecordInstruction(string(inst.Operation))

	s.log.Info("Server instruction created",
		logger.ObjectID("instruction_id", inst.ID),
		logger.ObjectID("site_id", inst.Site),
		logger.String("operation", string(inst.Operation)),
		logger.Ints("times", inst.Times),
		logger.Ints("weekdays", inst.Weekdays),
	)
	s.publish(ctx, events.InstructionEvent{
		EventType: events.InstructionCreated,
		SiteID:    inst.Site.Hex(),
		Payload: events.InstructionCreatedPayload{
			InstructionID: inst.ID.Hex(),
			Operation:     string(inst.Operation),
			Times:         inst.Times,
			Weekdays:      inst.Weekdays,
			StopAt:        inst.StopAt,
		},
	})
	return inst.ID, nil
}

func (s *Scheduler) build(ctx context.Context, req Request) (*models.ServerInstruction, error) {
	op := req.Operation
	if !slices.Contains(models.Operations, op) {
		return nil, fmt.Errorf("%w: operation %q is not one of %v", ErrInvalidInstruction, op, models.Operations)
	}

	if _, err := s.store.FindOne(ctx, models.CollectionSites, docstore.ByID(req.Site)); err != nil {
		return nil, fmt.Errorf("site %s: %w", req.Site.Hex(), err)
	}

	inst := &models.ServerInstruction{Site: req.Site, Operation: op}

	if op.Runs() {
		if len(req.Times) == 0 {
			return nil, fmt.Errorf("%w: operation %q requires a non-empty times list", ErrInvalidInstruction, op)
		}
		if len(req.Weekdays) == 0 {
			return nil, fmt.Errorf("%w: operation %q requires a non-empty weekdays list", ErrInvalidInstruction, op)
		}
		if req.ExcludeDates != nil && len(req.ExcludeDates) == 0 {
			return nil, fmt.Errorf("%w: operation %q requires a non-empty exclude dates list when one is provided",
				ErrInvalidInstruction, op)
		}

		times, err := normalizeTimes(req.Times)
		if err != nil {
			return nil, err
		}
		weekdays, err := normalizeWeekdays(req.Weekdays)
		if err != nil {
			return nil, err
		}
		inst.Times = times
		inst.Weekdays = weekdays
		inst.ExcludeDates = normalizeDates(req.ExcludeDates)
	}

	if op.Stops() {
		if req.StopAt == nil {
			return nil, fmt.Errorf("%w: operation %q requires a stop time", ErrInvalidInstruction, op)
		}
		stopAt := req.StopAt.UTC()
		inst.StopAt = &stopAt
	}
	return inst, nil
}

// List returns the instructions stored for site.
func (s *Scheduler) List(ctx context.Context, site bson.ObjectID) ([]*models.ServerInstruction, error) {
	out, err := record.FindAll[models.ServerInstruction](ctx, s.store, docstore.Filter{"site": site})
	if err != nil {
		return nil, fmt.Errorf("list instructions for site %s: %w", site.Hex(), err)
	}
	return out, nil
}

// SetRunning flips the running flag of every instruction of site that is not
// already in the requested state, as one bulk update.
func (s *Scheduler) SetRunning(ctx context.Context, site bson.ObjectID, running bool) ([]docstore.WriteError, error) {
	stored, err := s.List(ctx, site)
	if err != nil {
		return nil, err
	}

	var changed []*models.ServerInstruction
	for _, inst := range stored {
		if inst.Running != running {
			inst.Running = running
			changed = append(changed, inst)
		}
	}
	if len(changed) == 0 {
		return []docstore.WriteError{}, nil
	}

	failures, err := s.records.BulkUpdate(ctx, record.AsDocuments(changed))
	if err != nil {
		return nil, err
	}

	failed := make(map[bson.ObjectID]bool, len(failures))
	for _, f := range failures {
		failed[f.ID] = true
	}
	ids := make([]string, 0, len(changed))
	for _, inst := range changed {
		if !failed[inst.ID] {
			ids = append(ids, inst.ID.Hex())
		}
	}
	if len(ids) > 0 {
		s.publish(ctx, events.InstructionEvent{
			EventType: events.InstructionsRunningChanged,
			SiteID:    site.Hex(),
			Payload:   events.RunningChangedPayload{InstructionIDs: ids, Running: running},
		})
	}
	return failures, nil
}

func (s *Scheduler) publish(ctx context.Context, event events.InstructionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("Instruction event not published",
			logger.String("event_type", string(event.EventType)),
			logger.String("site_id", event.SiteID),
			logger.Error(err),
		)
	}
}

func normalizeTimes(values []string) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		secs, err := daytime.ParseDaySeconds(v)
		if err != nil {
			return nil, fmt.Errorf("%w: time %q must be HH:MM:SS within [0,23]:[0,59]:[0,59]: %w",
				ErrInvalidInstruction, v, err)
		}
		out = append(out, secs)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func normalizeWeekdays(values []int) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, d := range values {
		if d < models.MinWeekday || d > models.MaxWeekday {
			return nil, fmt.Errorf("%w: weekday %d is outside [%d, %d]",
				ErrInvalidInstruction, d, models.MinWeekday, models.MaxWeekday)
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func normalizeDates(values []time.Time) []time.Time {
	if len(values) == 0 {
		return nil
	}
	out := make([]time.Time, len(values))
	for i, d := range values {
		out[i] = daytime.DayBoundary(d).UTC()
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}
