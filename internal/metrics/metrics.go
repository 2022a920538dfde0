package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindcare_replies_total",
			Help: "Bot replies selected, by response category.",
		},
		[]string{"category"},
	)
	CrisisDetections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mindcare_crisis_detections_total",
			Help: "Messages classified as crisis.",
		},
	)
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindcare_reply_deliveries_total",
			Help: "Delayed reply deliveries, by outcome.",
		},
		[]string{"outcome"},
	)
	Purged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mindcare_retention_purged_total",
			Help: "Records removed by the retention job.",
		},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindcare_http_requests_total",
			Help: "HTTP requests, by method and status code.",
		},
		[]string{"method", "code"},
	)
	latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindcare_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(Replies, CrisisDetections, Deliveries, Purged, requests, latency)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack keeps websocket upgrades working through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Instrument counts requests and observes their latency.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		latency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
