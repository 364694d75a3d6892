package httpapi

import (
	"time"

	"feedproxy/pkg/feed"
)

// roundResponse is the wire form of a proxied round. Round ids are composite
// values up to 80 bits wide and answers are arbitrary-precision, so both
// travel as decimal strings.
type roundResponse struct {
	RoundID         string    `json:"round_id"`
	Answer          string    `json:"answer"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AnsweredInRound string    `json:"answered_in_round"`
}

func newRoundResponse(r feed.ProxyRound) roundResponse {
	return roundResponse{
		RoundID:         r.RoundID.String(),
		Answer:          r.Answer.String(),
		StartedAt:       r.StartedAt,
		UpdatedAt:       r.UpdatedAt,
		AnsweredInRound: r.AnsweredInRound.String(),
	}
}

// proposedRoundResponse carries a round from the pending source. These rounds
// are never phase-tagged, so the ids stay plain local counters.
type proposedRoundResponse struct {
	RoundID         uint64    `json:"round_id"`
	Answer          string    `json:"answer"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AnsweredInRound uint64    `json:"answered_in_round"`
}

func newProposedRoundResponse(r feed.Round) proposedRoundResponse {
	return proposedRoundResponse{
		RoundID:         r.RoundID,
		Answer:          r.Answer.String(),
		StartedAt:       r.StartedAt,
		UpdatedAt:       r.UpdatedAt,
		AnsweredInRound: r.AnsweredInRound,
	}
}

type feedResponse struct {
	PhaseID     uint16 `json:"phase_id"`
	Source      string `json:"source"`
	Proposed    string `json:"proposed_source,omitempty"`
	Decimals    uint8  `json:"decimals"`
	Version     uint64 `json:"version"`
	Description string `json:"description"`
}

type phaseResponse struct {
	ID     uint16 `json:"id"`
	Source string `json:"source"`
}

type sourceRequest struct {
	Source string `json:"source"`
}

type confirmResponse struct {
	PhaseID uint16 `json:"phase_id"`
	Source  string `json:"source"`
}

type archiveResponse struct {
	Key string `json:"key"`
}

type errorResponse struct {
	Error string `json:"error"`
}
