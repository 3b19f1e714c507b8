// Package metrics exports editor session activity to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newtron-network/netedit/pkg/session"
	"github.com/newtron-network/netedit/pkg/util"
)

// Commit outcome label values.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Collector bundles the editor metrics. It satisfies session.Observer so a
// Session can drive it directly.
type Collector struct {
	gatherer prometheus.Gatherer

	Recomputes      *prometheus.CounterVec
	RecomputeTime   *prometheus.HistogramVec
	Rows            *prometheus.GaugeVec
	Invalidations   *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	Commits         *prometheus.CounterVec
	CommitDurations *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
}

var _ session.Observer = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry returns the
// collectors already there.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Recomputes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netedit_recomputes_total",
		Help: "Row model recomputes, labeled by node.",
	}, []string{"node"})); err != nil {
		return nil, err
	}
	if c.RecomputeTime, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netedit_recompute_duration_seconds",
		Help:    "Time to flatten a snapshot and rebuild the VLAN table.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"node"})); err != nil {
		return nil, err
	}
	if c.Rows, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netedit_rows",
		Help: "Top-level rows in the current row model.",
	}, []string{"node"})); err != nil {
		return nil, err
	}
	if c.Invalidations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netedit_draft_invalidations_total",
		Help: "Drafts reset or dropped after a snapshot change, labeled by reason.",
	}, []string{"node", "reason"})); err != nil {
		return nil, err
	}
	if c.Transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netedit_mode_transitions_total",
		Help: "Mode transitions, labeled by trigger and target mode.",
	}, []string{"node", "trigger", "to"})); err != nil {
		return nil, err
	}
	if c.Commits, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netedit_commits_total",
		Help: "Mutation plans sent, labeled by operation and outcome.",
	}, []string{"node", "operation", "outcome"})); err != nil {
		return nil, err
	}
	if c.CommitDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netedit_commit_duration_seconds",
		Help:    "Mutation plan apply latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"node", "operation"})); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netedit_http_requests_total",
		Help: "API requests, labeled by method, route pattern and status code.",
	}, []string{"method", "route", "code"})); err != nil {
		return nil, err
	}
	return c, nil
}

// Recomputed implements session.Observer.
func (c *Collector) Recomputed(node string, rows int, took time.Duration) {
	c.Recomputes.WithLabelValues(node).Inc()
	c.RecomputeTime.WithLabelValues(node).Observe(took.Seconds())
	c.Rows.WithLabelValues(node).Set(float64(rows))
}

// Reconciled implements session.Observer. Reconciles that kept the draft
// as it was are not counted.
func (c *Collector) Reconciled(node, reason string) {
	if reason == session.ReasonNone {
		return
	}
	c.Invalidations.WithLabelValues(node, reason).Inc()
}

// Transitioned implements session.Observer.
func (c *Collector) Transitioned(node, trigger string, _, to session.Mode) {
	c.Transitions.WithLabelValues(node, trigger, string(to)).Inc()
}

// Committed implements session.Observer.
func (c *Collector) Committed(node, operation string, took time.Duration, err error) {
	c.Commits.WithLabelValues(node, operation, Outcome(err)).Inc()
	c.CommitDurations.WithLabelValues(node, operation).Observe(took.Seconds())
}

// Outcome classifies a commit result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeApplied
	case errors.Is(err, util.ErrMutationRejected):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Middleware counts requests by their chi route pattern, so row keys in
// the path do not explode the label space.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return c, err
	}
	return c, nil
}
