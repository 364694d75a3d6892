// Package feed defines the domain types and contracts of the versioned
// data-feed proxy: the aggregator collaborator interface, phase records,
// the composite round-ID codec, and the durable registry abstraction shared
// by every layer.
package feed

import (
	"context"
	"math/big"
	"time"
)

// PhaseID identifies one generation of backing data source. IDs are assigned
// by the registry starting at 1 and are strictly increasing over the lifetime
// of the proxy; 0 is reserved and means "no phase installed yet".
type PhaseID uint16

// MaxPhaseID is the last assignable phase id. Installing a phase beyond it
// fails with ErrPhaseOverflow instead of wrapping around.
const MaxPhaseID = PhaseID(^uint16(0))

// AggregatorRef is an opaque reference to a backing data source, typically an
// address or URL understood by a Dialer. The empty ref is the zero value and
// never identifies a real source.
type AggregatorRef string

// Phase binds a phase id to the data source that was active during it.
// A Phase is immutable once created; the registry only ever appends new ones.
type Phase struct {
	ID     PhaseID       `json:"id"`
	Source AggregatorRef `json:"source"`
}

// Round is a single backing source's record for one of its local rounds.
// The identifier fields carry no phase context. Answer and the timestamps
// are defined by the source and forwarded untouched by the proxy.
type Round struct {
	RoundID         uint64
	Answer          *big.Int
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// ProxyRound is a Round whose identifiers have been re-encoded with the phase
// that produced the data. RoundID and AnsweredInRound are composite 80-bit
// values; every round id a caller observes through the proxy has this form.
type ProxyRound struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound *big.Int
}

// Aggregator is the collaborator contract every backing data source
// satisfies. The proxy consumes this interface and never implements the
// round-production logic behind it.
type Aggregator interface {
	// RoundData returns the source's record for the given local round id.
	RoundData(ctx context.Context, roundID uint64) (Round, error)
	// LatestRoundData returns the source's most recent round.
	LatestRoundData(ctx context.Context) (Round, error)
	// Decimals reports the fixed-point precision of Answer values.
	Decimals(ctx context.Context) (uint8, error)
	// Version reports the source implementation version.
	Version(ctx context.Context) (uint64, error)
	// Description returns a human-readable label for the feed.
	Description(ctx context.Context) (string, error)
}

// Dialer resolves an AggregatorRef into a live Aggregator client. The proxy
// performs no liveness or conformance validation of the resolved source;
// dial failures surface to the caller like any other source failure.
type Dialer interface {
	Dial(ctx context.Context, ref AggregatorRef) (Aggregator, error)
}

// DialerFunc adapts a plain function to the Dialer interface.
type DialerFunc func(ctx context.Context, ref AggregatorRef) (Aggregator, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, ref AggregatorRef) (Aggregator, error) {
	return f(ctx, ref)
}
