// Package httpapi exposes the feed proxy over REST. Round queries, the
// proposed-source preview, feed metadata, and the admin upgrade protocol each
// get a resource; errors map onto conventional status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"feedproxy/internal/archive"
	"feedproxy/internal/proxy"
	"feedproxy/pkg/feed"
)

// Handler bundles the service dependencies behind the REST surface. The
// archiver is optional; without one the archive endpoint reports 501.
type Handler struct {
	svc      *proxy.Service
	archiver *archive.Archiver
	log      zerolog.Logger
}

// NewRouter builds the HTTP routing table around svc.
func NewRouter(svc *proxy.Service, archiver *archive.Archiver, log zerolog.Logger) *mux.Router {
	h := &Handler{svc: svc, archiver: archiver, log: log}

	r := mux.NewRouter().StrictSlash(true)
	r.Use(h.logRequests)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/rounds/latest", h.latestRound).Methods(http.MethodGet)
	v1.HandleFunc("/rounds/{id}", h.roundByID).Methods(http.MethodGet)
	v1.HandleFunc("/proposed/rounds/latest", h.proposedLatestRound).Methods(http.MethodGet)
	v1.HandleFunc("/proposed/rounds/{id}", h.proposedRoundByID).Methods(http.MethodGet)
	v1.HandleFunc("/feed", h.feedMetadata).Methods(http.MethodGet)
	v1.HandleFunc("/phases", h.phases).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/propose", h.proposeSource).Methods(http.MethodPost)
	admin.HandleFunc("/confirm", h.confirmSource).Methods(http.MethodPost)
	admin.HandleFunc("/archive", h.archiveSnapshot).Methods(http.MethodPost)

	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		h.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

// actor extracts the caller identity from a bearer token. Missing or
// malformed headers yield an empty actor, which the access controller
// rejects.
func actor(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP status codes. Failures that come
// back from an upstream source surface as 502 so dashboards can tell proxy
// faults from source faults.
func statusFor(err error) int {
	var unknown feed.UnknownPhaseError
	var mismatch feed.ProposalMismatchError
	var unauthorized feed.UnauthorizedError
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrNoProposal), errors.As(err, &mismatch):
		return http.StatusConflict
	case errors.As(err, &unauthorized):
		return http.StatusForbidden
	case errors.Is(err, feed.ErrPhaseOverflow):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// parseComposite reads a decimal composite round id. Negative values can
// never identify a round, so they are rejected before any phase decoding.
func parseComposite(raw string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("round id must be a decimal integer")
	}
	if id.Sign() < 0 {
		return nil, errors.New("round id must not be negative")
	}
	return id, nil
}

func parseLocalRound(raw string) (uint64, error) {
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok || id.Sign() < 0 || !id.IsUint64() {
		return 0, errors.New("round id must be an unsigned 64-bit decimal integer")
	}
	return id.Uint64(), nil
}

func (h *Handler) roundByID(w http.ResponseWriter, r *http.Request) {
	composite, err := parseComposite(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	round, err := h.svc.GetRoundData(r.Context(), composite)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundResponse(round))
}

func (h *Handler) latestRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.svc.LatestRoundData(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundResponse(round))
}

func (h *Handler) proposedRoundByID(w http.ResponseWriter, r *http.Request) {
	local, err := parseLocalRound(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	round, err := h.svc.ProposedGetRoundData(r.Context(), local)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProposedRoundResponse(round))
}

func (h *Handler) proposedLatestRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.svc.ProposedLatestRoundData(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProposedRoundResponse(round))
}

func (h *Handler) feedMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.Metadata(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{
		PhaseID:     uint16(meta.PhaseID),
		Source:      string(meta.Source),
		Proposed:    string(meta.Proposed),
		Decimals:    meta.Decimals,
		Version:     meta.Version,
		Description: meta.Description,
	})
}

func (h *Handler) phases(w http.ResponseWriter, r *http.Request) {
	phases, err := h.svc.Proxy().Phases(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]phaseResponse, 0, len(phases))
	for _, p := range phases {
		out = append(out, phaseResponse{ID: uint16(p.ID), Source: string(p.Source)})
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeSourceRequest(r *http.Request) (feed.AggregatorRef, error) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", errors.New("request body must be JSON with a source field")
	}
	if req.Source == "" {
		return "", errors.New("source must not be empty")
	}
	return feed.AggregatorRef(req.Source), nil
}

func (h *Handler) proposeSource(w http.ResponseWriter, r *http.Request) {
	candidate, err := decodeSourceRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.ProposeSource(r.Context(), actor(r), candidate); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirmSource(w http.ResponseWriter, r *http.Request) {
	candidate, err := decodeSourceRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	installed, err := h.svc.ConfirmSource(r.Context(), actor(r), candidate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{
		PhaseID: uint16(installed.ID),
		Source:  string(installed.Source),
	})
}

func (h *Handler) archiveSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "snapshot archival is not configured"})
		return
	}
	// Archival shares the admin token with the upgrade protocol.
	if err := h.svc.Proxy().Authorize(r.Context(), actor(r)); err != nil {
		h.writeError(w, err)
		return
	}
	key, err := h.archiver.Archive(r.Context(), h.svc.ExportSnapshot(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, archiveResponse{Key: key})
}
