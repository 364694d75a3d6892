// Command feedproxyd serves a versioned data-feed proxy over HTTP. The
// registry backend, blob archive, upstream dialer, and listen address are
// all configured through FEEDPROXY_* environment variables.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"feedproxy/internal/aggregator"
	"feedproxy/internal/archive"
	"feedproxy/internal/blob"
	"feedproxy/internal/httpapi"
	"feedproxy/internal/proxy"
	"feedproxy/pkg/feed"
)

const (
	envListenAddr    = "FEEDPROXY_LISTEN_ADDR"
	envAdminToken    = "FEEDPROXY_ADMIN_TOKEN"
	envInitialSource = "FEEDPROXY_INITIAL_SOURCE"

	defaultListenAddr = ":8080"

	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "feedproxyd").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Fatal().Err(err).Msg("feedproxyd failed")
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	store, err := proxy.OpenRegistryStore()
	if err != nil {
		return err
	}

	p, err := proxy.New(ctx, proxy.Config{
		Store:         store,
		Dialer:        aggregator.NewHTTPDialer(nil),
		Access:        proxy.StaticAdmin(os.Getenv(envAdminToken)),
		InitialSource: feed.AggregatorRef(os.Getenv(envInitialSource)),
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := proxy.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return err
	}
	svc := proxy.NewService(p, proxy.WithMetrics(metrics))

	blobStore, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	archiver := archive.NewArchiver(blobStore)

	router := httpapi.NewRouter(svc, archiver, log)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	addr := os.Getenv(envListenAddr)
	if addr == "" {
		addr = defaultListenAddr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("blob_driver", string(blobStore.Driver())).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
