package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

// Scan is one scan of a site by a peer.
type Scan struct {
	record.Base `bson:",inline"`

	Peer        bson.ObjectID   `bson:"peer"`
	Site        bson.ObjectID   `bson:"site"`
	ProcessName string          `bson:"process_name,omitempty"`
	IsActive    bool            `bson:"is_active"`
	FullScan    bool            `bson:"full_scan"`
	StartedAt   *time.Time      `bson:"started_at,omitempty"`
	FinishedAt  *time.Time      `bson:"finished_at,omitempty"`
	Documents   []bson.ObjectID `bson:"documents"`
}

// NewScan returns a tracked scan with its defaults.
func NewScan(peer, site bson.ObjectID) *Scan {
	s := &Scan{Peer: peer, Site: site, FullScan: true}
	track(s)
	return s
}

func (s *Scan) Collection() string    { return CollectionScans }
func (s *Scan) UniqueLists() []string { return []string{"documents"} }

// Validate checks the scan schema.
func (s *Scan) Validate() error {
	return schema.Check("Scans", s.checks()...)
}

func (s *Scan) checks() []schema.Result {
	return []schema.Result{
		schema.RequiredID("peer", s.Peer),
		schema.RequiredID("site", s.Site),
	}
}

// Start marks the scan active from now.
func (s *Scan) Start(clk clock.TimeProvider) {
	now := clk.Now()
	s.IsActive = true
	s.StartedAt = &now
	s.FinishedAt = nil
}

// Finish marks the scan complete.
func (s *Scan) Finish(clk clock.TimeProvider) {
	now := clk.Now()
	s.IsActive = false
	s.FinishedAt = &now
}

// ExtendedScan is a scan driven by server instructions. It is stored in the
// scans collection.
type ExtendedScan struct {
	Scan `bson:",inline"`

	RunInstruction  bson.ObjectID `bson:"run_instruction"`
	StopInstruction bson.ObjectID `bson:"stop_instruction,omitempty"`
}

// NewExtendedScan returns a tracked scan bound to its run instruction.
func NewExtendedScan(peer, site, runInstruction bson.ObjectID) *ExtendedScan {
	s := &ExtendedScan{Scan: Scan{Peer: peer, Site: site, FullScan: true}, RunInstruction: runInstruction}
	track(s)
	return s
}

// Validate checks the scan schema and its instruction references.
func (s *ExtendedScan) Validate() error {
	return schema.Check("ExtendedScans", append(s.checks(),
		schema.RequiredID("run_instruction", s.RunInstruction),
	)...)
}
