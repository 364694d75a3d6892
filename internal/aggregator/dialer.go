package aggregator

import (
	"context"
	"fmt"
	"net/http"

	"feedproxy/pkg/feed"
)

// HTTPDialer interprets aggregator refs as base URLs and hands out
// HTTPClients. All clients share one underlying http.Client.
type HTTPDialer struct {
	http *http.Client
}

var _ feed.Dialer = (*HTTPDialer)(nil)

// NewHTTPDialer builds a dialer; a nil httpClient falls back to a default
// with a request timeout.
func NewHTTPDialer(httpClient *http.Client) *HTTPDialer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPDialer{http: httpClient}
}

func (d *HTTPDialer) Dial(_ context.Context, ref feed.AggregatorRef) (feed.Aggregator, error) {
	return NewHTTPClient(string(ref), d.http)
}

// StaticDialer resolves refs from a fixed table. Useful for embedding and
// tests where the sources are constructed up front.
type StaticDialer map[feed.AggregatorRef]feed.Aggregator

var _ feed.Dialer = (StaticDialer)(nil)

func (d StaticDialer) Dial(_ context.Context, ref feed.AggregatorRef) (feed.Aggregator, error) {
	agg, ok := d[ref]
	if !ok {
		return nil, fmt.Errorf("no aggregator registered for ref %q", ref)
	}
	return agg, nil
}
