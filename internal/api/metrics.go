package api

import (
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/queue"
)

type metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   prometheus.Gauge
	queueDepth prometheus.GaugeFunc
	gatherer   prometheus.Gatherer
}

func newMetrics(reg prometheus.Registerer, listenAddr string, q *queue.RequestQueueManager) *metrics {
	labels := prometheus.Labels{"listen_addr": listenAddr}

	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "sgi_inbox_http_requests_total",
				Help:        "Total count of HTTP requests received.",
				ConstLabels: labels,
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "sgi_inbox_http_request_duration_seconds",
				Help:        "Histogram of request durations.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"method", "route", "status"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "sgi_inbox_http_inflight_requests",
			Help:        "Number of requests currently being handled.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.inFlight)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	if q != nil {
		m.queueDepth = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "sgi_inbox_request_queue_depth",
				Help:        "Jobs waiting in the request queue channel.",
				ConstLabels: labels,
			},
			func() float64 {
				return float64(len(q.JobQueue))
			},
		)
		reg.MustRegister(m.queueDepth)
	}

	return m
}

// metricsHandler exposes /metrics from the registry the collectors live in.
func (m *metrics) metricsHandler() http.Handler {
	if m.gatherer == nil || m.gatherer == prometheus.DefaultGatherer {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// instrument wraps the provided handler with Prometheus counters and histograms.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		route := routeTemplate(r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start).Seconds()

		statusLabel := strconv.Itoa(rec.status)
		labels := []string{r.Method, route, statusLabel}

		m.requests.WithLabelValues(labels...).Inc()
		m.duration.WithLabelValues(labels...).Observe(elapsed)
	})
}

// idCollections are the path segments followed by a caller-chosen id.
var idCollections = []string{"conversations", "clients"}

// conversationActions are the sub-resources mounted under a conversation id.
var conversationActions = []string{"messages", "read", "take", "release", "status", "discard", "convert"}

// routeTemplate maps a request path onto its route, replacing ids with {id}
// so the label set stays bounded. /api/inbox/v1/conversations/wa-51.../take
// becomes /api/inbox/v1/conversations/{id}/take. Anything past a known
// route is reported as {other}.
func routeTemplate(p string) string {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return clean
	}

	segments := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	for i, seg := range segments[:len(segments)-1] {
		if !slices.Contains(idCollections, seg) {
			continue
		}
		out := append(segments[:i+1:i+1], "{id}")
		switch rest := segments[i+2:]; {
		case len(rest) == 0:
		case seg == "conversations" && len(rest) == 1 && slices.Contains(conversationActions, rest[0]):
			out = append(out, rest[0])
		default:
			out = append(out, "{other}")
		}
		return "/" + strings.Join(out, "/")
	}

	// other paths keep the api/name/version prefix and one resource
	out := segments
	if len(out) > 4 {
		out = append(out[:4:4], "{other}")
	}
	return "/" + strings.Join(out, "/")
}

// statusRecorder captures the final status code for metrics purposes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}
