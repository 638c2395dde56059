package grpccas

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics holds the Prometheus collectors for the CAS service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Put calls rejected because the bytes were not canonical RCF.
	Rejected prometheus.Counter
}

// NewMetrics registers the CAS collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xdao_rcf",
				Subsystem: "cas",
				Name:      "requests_total",
				Help:      "Total number of CAS RPCs by method and status code",
			},
			[]string{"method", "code"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "xdao_rcf",
				Subsystem: "cas",
				Name:      "request_duration_seconds",
				Help:      "CAS RPC duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "xdao_rcf",
				Subsystem: "cas",
				Name:      "requests_in_flight",
				Help:      "Number of CAS RPCs currently being served",
			},
		),
		Rejected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "xdao_rcf",
				Subsystem: "cas",
				Name:      "rejected_non_canonical_total",
				Help:      "Put calls rejected because the bytes were not canonical RCF",
			},
		),
	}
}

// Interceptor records every unary call. A nil *Metrics yields a pass-through
// interceptor.
func (m *Metrics) Interceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if m == nil {
			return handler(ctx, req)
		}
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		resp, err := handler(ctx, req)
		m.RequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		m.RequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

func (m *Metrics) rejected() {
	if m != nil {
		m.Rejected.Inc()
	}
}
