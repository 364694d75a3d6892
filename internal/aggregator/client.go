// Package aggregator provides clients for upstream data-feed aggregators and
// the dialers that turn a stored aggregator ref into a live client.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"feedproxy/pkg/feed"
)

const defaultHTTPTimeout = 10 * time.Second

// roundPayload is the wire form of a single aggregator round. Answers travel
// as decimal strings so values beyond 64 bits survive the trip.
type roundPayload struct {
	RoundID         uint64    `json:"round_id"`
	Answer          string    `json:"answer"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AnsweredInRound uint64    `json:"answered_in_round"`
}

func (p roundPayload) toRound() (feed.Round, error) {
	answer, ok := new(big.Int).SetString(p.Answer, 10)
	if !ok {
		return feed.Round{}, fmt.Errorf("malformed answer %q in round %d", p.Answer, p.RoundID)
	}
	return feed.Round{
		RoundID:         p.RoundID,
		Answer:          answer,
		StartedAt:       p.StartedAt,
		UpdatedAt:       p.UpdatedAt,
		AnsweredInRound: p.AnsweredInRound,
	}, nil
}

type feedPayload struct {
	Decimals    uint8  `json:"decimals"`
	Version     uint64 `json:"version"`
	Description string `json:"description"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// HTTPClient speaks the aggregator REST surface:
//
//	GET {base}/v1/rounds/{id}
//	GET {base}/v1/rounds/latest
//	GET {base}/v1/feed
var _ feed.Aggregator = (*HTTPClient)(nil)

type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient builds a client for the aggregator served at baseURL. A nil
// httpClient falls back to a default with a request timeout.
func NewHTTPClient(baseURL string, httpClient *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse aggregator url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("aggregator url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPClient{base: u.String(), http: httpClient}, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call aggregator %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ep errorPayload
		if decodeErr := json.NewDecoder(resp.Body).Decode(&ep); decodeErr == nil && ep.Error != "" {
			return fmt.Errorf("aggregator %s: %s (status %d)", path, ep.Error, resp.StatusCode)
		}
		return fmt.Errorf("aggregator %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode aggregator response %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) RoundData(ctx context.Context, roundID uint64) (feed.Round, error) {
	var payload roundPayload
	if err := c.getJSON(ctx, "/v1/rounds/"+strconv.FormatUint(roundID, 10), &payload); err != nil {
		return feed.Round{}, err
	}
	return payload.toRound()
}

func (c *HTTPClient) LatestRoundData(ctx context.Context) (feed.Round, error) {
	var payload roundPayload
	if err := c.getJSON(ctx, "/v1/rounds/latest", &payload); err != nil {
		return feed.Round{}, err
	}
	return payload.toRound()
}

func (c *HTTPClient) feedMetadata(ctx context.Context) (feedPayload, error) {
	var payload feedPayload
	err := c.getJSON(ctx, "/v1/feed", &payload)
	return payload, err
}

func (c *HTTPClient) Decimals(ctx context.Context) (uint8, error) {
	meta, err := c.feedMetadata(ctx)
	return meta.Decimals, err
}

func (c *HTTPClient) Version(ctx context.Context) (uint64, error) {
	meta, err := c.feedMetadata(ctx)
	return meta.Version, err
}

func (c *HTTPClient) Description(ctx context.Context) (string, error) {
	meta, err := c.feedMetadata(ctx)
	return meta.Description, err
}
