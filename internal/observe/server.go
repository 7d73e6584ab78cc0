package observe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Prometheus scrape endpoint while a run is in
// progress.
type MetricsServer struct {
	srv *http.Server
	ln  net.Listener
}

// ServeMetrics starts an HTTP server on addr exposing g on /metrics. A nil g
// serves prometheus.DefaultGatherer, which the exporter installed by
// [InitProvider] registers with unless told otherwise. Use ":0" to pick a free
// port and read it back with [MetricsServer.Addr].
func ServeMetrics(addr string, g prometheus.Gatherer) (*MetricsServer, error) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("observe: listen %q: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	s := &MetricsServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		ln: ln,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observe: metrics server stopped", "err", err)
		}
	}()
	slog.Info("metrics endpoint listening", "addr", s.Addr())
	return s, nil
}

// Addr returns the bound listen address.
func (s *MetricsServer) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops accepting scrapes and waits for in-flight ones until ctx
// expires.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
