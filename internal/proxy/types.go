package proxy

import "feedproxy/pkg/feed"

type (
	// PhaseID aliases feed.PhaseID for proxy-internal use.
	PhaseID = feed.PhaseID
	// Phase aliases feed.Phase.
	Phase = feed.Phase
	// AggregatorRef aliases feed.AggregatorRef.
	AggregatorRef = feed.AggregatorRef
	// Aggregator aliases feed.Aggregator.
	Aggregator = feed.Aggregator
	// Round aliases feed.Round.
	Round = feed.Round
	// ProxyRound aliases feed.ProxyRound.
	ProxyRound = feed.ProxyRound
	// RegistryStore aliases feed.RegistryStore.
	RegistryStore = feed.RegistryStore
	// RegistrySnapshot aliases feed.RegistrySnapshot.
	RegistrySnapshot = feed.RegistrySnapshot
	// Dialer aliases feed.Dialer.
	Dialer = feed.Dialer
)
