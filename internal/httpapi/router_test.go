package httpapi

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feedproxy/internal/archive"
	"feedproxy/internal/blob"
	regmemory "feedproxy/internal/infra/persistence/memory"
	"feedproxy/internal/proxy"
	"feedproxy/pkg/feed"
)

const testAdminToken = "test-admin-token"

// echoAggregator answers every round with the requested id times a fixed
// factor, mirroring the stub used in the proxy package tests.
type echoAggregator struct {
	factor int64
}

func (a echoAggregator) RoundData(_ context.Context, roundID uint64) (feed.Round, error) {
	return feed.Round{
		RoundID:         roundID,
		Answer:          big.NewInt(int64(roundID) * a.factor),
		StartedAt:       time.Unix(1000, 0).UTC(),
		UpdatedAt:       time.Unix(2000, 0).UTC(),
		AnsweredInRound: roundID,
	}, nil
}

func (a echoAggregator) LatestRoundData(ctx context.Context) (feed.Round, error) {
	return a.RoundData(ctx, 1)
}

func (a echoAggregator) Decimals(context.Context) (uint8, error) { return 8, nil }

func (a echoAggregator) Version(context.Context) (uint64, error) { return 4, nil }

func (a echoAggregator) Description(context.Context) (string, error) { return "ETH / USD", nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	sources := map[feed.AggregatorRef]feed.Aggregator{
		"agg-v1": echoAggregator{factor: 100},
		"agg-v2": echoAggregator{factor: 200},
	}
	p, err := proxy.New(context.Background(), proxy.Config{
		Store: regmemory.NewStore(),
		Dialer: feed.DialerFunc(func(_ context.Context, ref feed.AggregatorRef) (feed.Aggregator, error) {
			return sources[ref], nil
		}),
		Access:        proxy.StaticAdmin(testAdminToken),
		InitialSource: "agg-v1",
	})
	if err != nil {
		t.Fatalf("new proxy: %v", err)
	}
	svc := proxy.NewService(p)
	arch := archive.NewArchiver(blob.NewMemory())
	router := NewRouter(svc, arch, zerolog.Nop())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

func TestRoundEndpointReencodesCompositeIDs(t *testing.T) {
	srv := newTestServer(t)
	composite := feed.Pack(1, 5)

	var round roundResponse
	resp := doJSON(t, srv, http.MethodGet, "/v1/rounds/"+composite.String(), "", "", &round)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if round.RoundID != composite.String() {
		t.Fatalf("round id %q, want %q", round.RoundID, composite.String())
	}
	if round.AnsweredInRound != composite.String() {
		t.Fatalf("answered in round %q, want %q", round.AnsweredInRound, composite.String())
	}
	if round.Answer != "500" {
		t.Fatalf("answer %q, want 500", round.Answer)
	}
}

func TestRoundEndpointInputValidation(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		path       string
		wantStatus int
	}{
		{"/v1/rounds/-5", http.StatusBadRequest},
		{"/v1/rounds/not-a-number", http.StatusBadRequest},
		{"/v1/rounds/" + feed.Pack(9, 1).String(), http.StatusNotFound},
	}
	for _, tc := range cases {
		resp := doJSON(t, srv, http.MethodGet, tc.path, "", "", nil)
		if resp.StatusCode != tc.wantStatus {
			t.Fatalf("%s: status %d, want %d", tc.path, resp.StatusCode, tc.wantStatus)
		}
	}
}

func TestLatestRoundEndpoint(t *testing.T) {
	srv := newTestServer(t)
	var round roundResponse
	resp := doJSON(t, srv, http.MethodGet, "/v1/rounds/latest", "", "", &round)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if round.RoundID != feed.Pack(1, 1).String() {
		t.Fatalf("round id %q, want %q", round.RoundID, feed.Pack(1, 1).String())
	}
}

func TestUpgradeProtocolOverREST(t *testing.T) {
	srv := newTestServer(t)

	// Proposed reads 409 while the slot is empty.
	resp := doJSON(t, srv, http.MethodGet, "/v1/proposed/rounds/latest", "", "", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("proposed latest before propose: status %d", resp.StatusCode)
	}

	// Propose requires the admin token.
	resp = doJSON(t, srv, http.MethodPost, "/v1/admin/propose", "", `{"source":"agg-v2"}`, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthenticated propose: status %d", resp.StatusCode)
	}
	resp = doJSON(t, srv, http.MethodPost, "/v1/admin/propose", testAdminToken, `{"source":"agg-v2"}`, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("propose: status %d", resp.StatusCode)
	}

	// The pending source is readable before confirmation.
	var proposed proposedRoundResponse
	resp = doJSON(t, srv, http.MethodGet, "/v1/proposed/rounds/3", "", "", &proposed)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("proposed round: status %d", resp.StatusCode)
	}
	if proposed.RoundID != 3 || proposed.Answer != "600" {
		t.Fatalf("unexpected proposed round %+v", proposed)
	}

	// Confirming a different candidate conflicts.
	resp = doJSON(t, srv, http.MethodPost, "/v1/admin/confirm", testAdminToken, `{"source":"agg-v9"}`, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("mismatched confirm: status %d", resp.StatusCode)
	}

	var confirmed confirmResponse
	resp = doJSON(t, srv, http.MethodPost, "/v1/admin/confirm", testAdminToken, `{"source":"agg-v2"}`, &confirmed)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: status %d", resp.StatusCode)
	}
	if confirmed.PhaseID != 2 || confirmed.Source != "agg-v2" {
		t.Fatalf("unexpected confirm response %+v", confirmed)
	}

	// Latest now comes from phase 2.
	var latest roundResponse
	resp = doJSON(t, srv, http.MethodGet, "/v1/rounds/latest", "", "", &latest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("latest after confirm: status %d", resp.StatusCode)
	}
	if latest.RoundID != feed.Pack(2, 1).String() || latest.Answer != "200" {
		t.Fatalf("unexpected latest %+v", latest)
	}

	// Historical phase-1 composites still resolve.
	var historical roundResponse
	resp = doJSON(t, srv, http.MethodGet, "/v1/rounds/"+feed.Pack(1, 5).String(), "", "", &historical)
	if resp.StatusCode != http.StatusOK || historical.Answer != "500" {
		t.Fatalf("historical round: status %d, answer %q", resp.StatusCode, historical.Answer)
	}
}

func TestFeedMetadataEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var meta feedResponse
	resp := doJSON(t, srv, http.MethodGet, "/v1/feed", "", "", &meta)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if meta.PhaseID != 1 || meta.Source != "agg-v1" || meta.Proposed != "" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Decimals != 8 || meta.Version != 4 || meta.Description != "ETH / USD" {
		t.Fatalf("pass-through metadata wrong: %+v", meta)
	}

	doJSON(t, srv, http.MethodPost, "/v1/admin/propose", testAdminToken, `{"source":"agg-v2"}`, nil)
	resp = doJSON(t, srv, http.MethodGet, "/v1/feed", "", "", &meta)
	if resp.StatusCode != http.StatusOK || meta.Proposed != "agg-v2" {
		t.Fatalf("expected proposed agg-v2, got %+v (status %d)", meta, resp.StatusCode)
	}
}

func TestPhasesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/v1/admin/propose", testAdminToken, `{"source":"agg-v2"}`, nil)
	doJSON(t, srv, http.MethodPost, "/v1/admin/confirm", testAdminToken, `{"source":"agg-v2"}`, nil)

	var phases []phaseResponse
	resp := doJSON(t, srv, http.MethodGet, "/v1/phases", "", "", &phases)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(phases) != 2 || phases[0].Source != "agg-v1" || phases[1].Source != "agg-v2" {
		t.Fatalf("unexpected phases %+v", phases)
	}
}

func TestAdminInputValidation(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{"", "{", `{"source":""}`} {
		resp := doJSON(t, srv, http.MethodPost, "/v1/admin/propose", testAdminToken, body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status %d", body, resp.StatusCode)
		}
	}
}

func TestArchiveEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/admin/archive", "", "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthenticated archive: status %d", resp.StatusCode)
	}

	var archived archiveResponse
	resp = doJSON(t, srv, http.MethodPost, "/v1/admin/archive", testAdminToken, "", &archived)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("archive: status %d", resp.StatusCode)
	}
	if !strings.HasPrefix(archived.Key, "registry/") || !strings.HasSuffix(archived.Key, ".json") {
		t.Fatalf("unexpected archive key %q", archived.Key)
	}
}
