// Package metrics exposes Prometheus counters for the mirroring session.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/code-mirror/mirror/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mirror"

// Collector records session notices.
type Collector struct {
	registry *prometheus.Registry

	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	dropped  prometheus.Counter
	started  prometheus.Counter
	errors   prometheus.Counter
	state    prometheus.Gauge
}

// New registers the session metrics on a private registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		sent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages handed to the transport, by wire type.",
		}, []string{"type"}),
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages received from the relay, by wire type.",
		}, []string{"type"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_dropped_total",
			Help:      "Outbound messages dropped because a queue was full or the connection was gone.",
		}),
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Connection attempts started.",
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Sessions that ended because of a transport error.",
		}),
		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state: 0 idle, 1 connecting, 2 active.",
		}),
	}
}

// Observe is a session.Observer.
func (c *Collector) Observe(n session.Notice) {
	switch n.Kind {
	case session.NoticeState:
		c.state.Set(float64(n.State))
		if n.State == session.Connecting {
			c.started.Inc()
		}
	case session.NoticeSent:
		c.sent.WithLabelValues(string(n.Message)).Inc()
	case session.NoticeReceived:
		kind := string(n.Message)
		if kind == "" {
			kind = "malformed"
		}
		c.received.WithLabelValues(kind).Inc()
	case session.NoticeDropped:
		c.dropped.Inc()
	case session.NoticeError:
		c.errors.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
