package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	pkgmetrics "github.com/orgball2608/storyshare/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	authRejections *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyshare_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storyshare_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		authRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyshare_http_auth_rejections_total",
				Help: "Total number of unauthorized requests",
			},
			[]string{"reason"},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.requests, err = pkgmetrics.Register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = pkgmetrics.Register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.authRejections, err = pkgmetrics.Register(reg, m.authRejections); err != nil {
		return nil, err
	}
	return m, nil
}

// monitorMiddleware labels by route template so ids in paths do not blow up
// the series count.
func (s *Server) monitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		ww := &responseWriter{w, http.StatusOK}

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		s.metrics.duration.WithLabelValues(route, r.Method).Observe(s.clock.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
