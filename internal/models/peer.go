package models

import (
	"time"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/clock"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/record"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/schema"
)

// Peer is a crawler worker. Workers may share an IP address but never a name.
type Peer struct {
	record.Base `bson:",inline"`

	IPAddress  string     `bson:"ip_address"`
	Name       string     `bson:"name"`
	IsAssigned bool       `bson:"is_assigned"`
	IsAllowed  bool       `bson:"is_allowed"`
	Created    time.Time  `bson:"created"`
	Updated    *time.Time `bson:"updated,omitempty"`
}

// NewPeer returns a tracked peer.
func NewPeer(clk clock.TimeProvider, name, ipAddress string) *Peer {
	p := &Peer{Name: name, IPAddress: ipAddress, Created: clk.Now()}
	track(p)
	return p
}

func (p *Peer) Collection() string    { return CollectionPeers }
func (p *Peer) UniqueLists() []string { return nil }

// Validate checks the peer schema.
func (p *Peer) Validate() error {
	return schema.Check("Peers",
		schema.Required("ip_address", p.IPAddress),
		schema.Pattern("ip_address", p.IPAddress, schema.IPAddressPattern),
		schema.Required("name", p.Name),
	)
}
