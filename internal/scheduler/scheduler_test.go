package scheduler_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/docstore/memory"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/events"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/logger"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/metrics"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/scheduler"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/sites"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/testhelpers"
	loggerMock "github.com/jonesrussell/north-cloud/scan-registry/internal/testhelpers/mocks/logger"
)

var stopAt = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

type fixture struct {
	sched   *scheduler.Scheduler
	store   *memory.Store
	metrics *metrics.Metrics
	site    bson.ObjectID
}

func newFixture(t *testing.T, pub scheduler.EventPublisher) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, models.EnsureIndexes(ctx, store))

	site := &models.Site{URL: "https://www.site1.com"}
	require.NoError(t, sites.NewRepository(store, logger.NewNop(), nil).
		Save(ctx, site, sites.SaveOptions{ForceInsert: true}))

	m := metrics.New(prometheus.NewRegistry())
	records := record.NewRepository(store, logger.NewNop(), m)
	return fixture{
		sched:   scheduler.New(records, pub, m, testhelpers.NewTestLogger()),
		store:   store,
		metrics: m,
		site:    site.ID,
	}
}

func runRequest(site bson.ObjectID) scheduler.Request {
	return scheduler.Request{
		Operation: models.OperationRun,
		Site:      site,
		Times:     []string{"10:00:00", "10:00:00", "09:00:00"},
		Weekdays:  []int{1, 1, 3},
	}
}

func stopRequest(site bson.ObjectID) scheduler.Request {
	at := stopAt
	return scheduler.Request{Operation: models.OperationStop, Site: site, StopAt: &at}
}

func runAndStopRequest(site bson.ObjectID) scheduler.Request {
	req := runRequest(site)
	req.Operation = models.OperationRunAndStop
	at := stopAt
	req.StopAt = &at
	return req
}

func TestCreateInstruction_NormalizesRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	req := runRequest(f.site)
	req.ExcludeDates = []time.Time{
		time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 8, 22, 0, 0, 0, time.UTC),
	}

	id, err := f.sched.CreateInstruction(ctx, req)
	require.NoError(t, err)
	require.False(t, id.IsZero())

	stored, err := record.FindByID[models.ServerInstruction](ctx, f.store, id)
	require.NoError(t, err)
	assert.Equal(t, models.OperationRun, stored.Operation)
	assert.Equal(t, []int{32401, 36001}, stored.Times)
	assert.Equal(t, []int{1, 3}, stored.Weekdays)
	require.Len(t, stored.ExcludeDates, 2)
	assert.True(t, stored.ExcludeDates[0].Equal(time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)))
	assert.True(t, stored.ExcludeDates[1].Equal(time.Date(2024, 3, 8, 23, 59, 59, 0, time.UTC)))
	assert.Nil(t, stored.StopAt)
	assert.False(t, stored.Running)

	assert.InDelta(t, 1, testutil.ToFloat64(
		f.metrics.InstructionsCreatedTotal.WithLabelValues(string(models.OperationRun))), 0)
}

func TestCreateInstruction_ExcludeDateKeepsCallerDay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	tokyo := time.FixedZone("JST", 9*60*60)
	req := runRequest(f.site)
	req.ExcludeDates = []time.Time{time.Date(2024, 12, 25, 8, 0, 0, 0, tokyo)}

	id, err := f.sched.CreateInstruction(ctx, req)
	require.NoError(t, err)

	stored, err := record.FindByID[models.ServerInstruction](ctx, f.store, id)
	require.NoError(t, err)
	require.Len(t, stored.ExcludeDates, 1)
	want := time.Date(2024, 12, 25, 23, 59, 59, 0, tokyo)
	assert.True(t, stored.ExcludeDates[0].Equal(want), "got %s", stored.ExcludeDates[0])
	assert.Equal(t, 25, stored.ExcludeDates[0].In(tokyo).Day())
}

func TestCreateInstruction_StopIgnoresSchedule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	req := stopRequest(f.site)
	req.Times = []string{"not a time"}

	id, err := f.sched.CreateInstruction(ctx, req)
	require.NoError(t, err)

	stored, err := record.FindByID[models.ServerInstruction](ctx, f.store, id)
	require.NoError(t, err)
	require.NotNil(t, stored.StopAt)
	assert.True(t, stored.StopAt.Equal(stopAt))
	assert.Empty(t, stored.Times)
	assert.Empty(t, stored.Weekdays)
}

func TestCreateInstruction_InvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(r *scheduler.Request)
	}{
		{name: "unknown operation", mutate: func(r *scheduler.Request) { r.Operation = "PAUSE" }},
		{name: "missing times", mutate: func(r *scheduler.Request) { r.Times = nil }},
		{name: "missing weekdays", mutate: func(r *scheduler.Request) { r.Weekdays = []int{} }},
		{name: "empty exclude dates", mutate: func(r *scheduler.Request) { r.ExcludeDates = []time.Time{} }},
		{name: "malformed time", mutate: func(r *scheduler.Request) { r.Times = []string{"10:00"} }},
		{name: "out of range time", mutate: func(r *scheduler.Request) { r.Times = []string{"24:00:00"} }},
		{name: "out of range weekday", mutate: func(r *scheduler.Request) { r.Weekdays = []int{7} }},
		{name: "stop and run without stop time", mutate: func(r *scheduler.Request) {
			r.Operation = models.OperationRunAndStop
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil)
			req := runRequest(f.site)
			tt.mutate(&req)

			_, err := f.sched.CreateInstruction(context.Background(), req)
			require.ErrorIs(t, err, scheduler.ErrInvalidInstruction)

			stored, listErr := f.sched.List(context.Background(), f.site)
			require.NoError(t, listErr)
			assert.Empty(t, stored)
		})
	}
}

func TestCreateInstruction_StopRequiresStopTime(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, err := f.sched.CreateInstruction(context.Background(),
		scheduler.Request{Operation: models.OperationStop, Site: f.site})
	require.ErrorIs(t, err, scheduler.ErrInvalidInstruction)
}

func TestCreateInstruction_UnknownSite(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, err := f.sched.CreateInstruction(context.Background(), runRequest(bson.NewObjectID()))
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestCreateInstruction_Coexistence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing []func(bson.ObjectID) scheduler.Request
		next     func(bson.ObjectID) scheduler.Request
		conflict bool
	}{
		{name: "run with stop", existing: []func(bson.ObjectID) scheduler.Request{runRequest}, next: stopRequest},
		{name: "stop with run", existing: []func(bson.ObjectID) scheduler.Request{stopRequest}, next: runRequest},
		{
			name:     "stop and run with run",
			existing: []func(bson.ObjectID) scheduler.Request{runAndStopRequest},
			next:     runRequest,
		},
		{
			name:     "second run",
			existing: []func(bson.ObjectID) scheduler.Request{runRequest},
			next:     runRequest,
			conflict: true,
		},
		{
			name:     "stop after stop and run",
			existing: []func(bson.ObjectID) scheduler.Request{runAndStopRequest},
			next:     stopRequest,
			conflict: true,
		},
		{
			name:     "stop and run after stop",
			existing: []func(bson.ObjectID) scheduler.Request{stopRequest},
			next:     runAndStopRequest,
			conflict: true,
		},
		{
			name:     "third instruction",
			existing: []func(bson.ObjectID) scheduler.Request{runAndStopRequest, runRequest},
			next:     stopRequest,
			conflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil)
			ctx := context.Background()
			for _, build := range tt.existing {
				_, err := f.sched.CreateInstruction(ctx, build(f.site))
				require.NoError(t, err)
			}

			req := tt.next(f.site)
			_, err := f.sched.CreateInstruction(ctx, req)
			stored, listErr := f.sched.List(ctx, f.site)
			require.NoError(t, listErr)

			if !tt.conflict {
				require.NoError(t, err)
				assert.Len(t, stored, len(tt.existing)+1)
				return
			}

			require.ErrorIs(t, err, scheduler.ErrSchedulingConflict)
			var conflict *scheduler.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, f.site, conflict.Site)
			assert.Equal(t, req.Operation, conflict.Operation)
			assert.Len(t, conflict.Existing, len(tt.existing))
			assert.Len(t, stored, len(tt.existing))
			assert.InDelta(t, 1, testutil.ToFloat64(
				f.metrics.ConflictsTotal.WithLabelValues(string(req.Operation))), 0)
		})
	}
}

func TestCreateInstruction_PublishesEvent(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, events.NewPublisher(client, logger.NewNop()))
	ctx := context.Background()

	id, err := f.sched.CreateInstruction(ctx, runRequest(f.site))
	require.NoError(t, err)

	entries, err := client.XRange(ctx, events.StreamName, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(events.InstructionCreated), entries[0].Values["event_type"])

	var decoded struct {
		SiteID  string                           `json:"site_id"`
		Payload events.InstructionCreatedPayload `json:"payload"`
	}
	raw, ok := entries[0].Values["event"].(string)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, f.site.Hex(), decoded.SiteID)
	assert.Equal(t, id.Hex(), decoded.Payload.InstructionID)
	assert.Equal(t, []int{32401, 36001}, decoded.Payload.Times)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.InstructionEvent) error {
	return errors.New("stream unavailable")
}

func TestCreateInstruction_PublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockLog := loggerMock.NewMockLogger(ctrl)
	mockLog.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	mockLog.EXPECT().Warn("Instruction event not published", gomock.Any()).Times(1)

	f := newFixture(t, nil)
	records := record.NewRepository(f.store, logger.NewNop(), nil)
	sched := scheduler.New(records, failingPublisher{}, nil, mockLog)

	id, err := sched.CreateInstruction(context.Background(), runRequest(f.site))
	require.NoError(t, err)
	assert.False(t, id.IsZero())
}

func TestSetRunning(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, events.NewPublisher(client, logger.NewNop()))
	ctx := context.Background()
	runID, err := f.sched.CreateInstruction(ctx, runRequest(f.site))
	require.NoError(t, err)
	_, err = f.sched.CreateInstruction(ctx, stopRequest(f.site))
	require.NoError(t, err)

	failures, err := f.sched.SetRunning(ctx, f.site, true)
	require.NoError(t, err)
	assert.Empty(t, failures)

	stored, err := f.sched.List(ctx, f.site)
	require.NoError(t, err)
	for _, inst := range stored {
		assert.True(t, inst.Running, inst.Operation)
	}

	failures, err = f.sched.SetRunning(ctx, f.site, true)
	require.NoError(t, err)
	assert.NotNil(t, failures)
	assert.Empty(t, failures)

	entries, err := client.XRange(ctx, events.StreamName, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3, "two creations and one running change")
	assert.Equal(t, string(events.InstructionsRunningChanged), entries[2].Values["event_type"])
	assert.Contains(t, entries[2].Values["event"], runID.Hex())
}
