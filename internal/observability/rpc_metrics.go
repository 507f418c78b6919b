package observability

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// RPCCollector records request counts and latencies for gRPC servers.
type RPCCollector struct {
	Requests  *prometheus.CounterVec
	Durations *prometheus.HistogramVec
}

// NewRPCCollector registers RPC metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewRPCCollector(reg prometheus.Registerer) (*RPCCollector, error) {
	reg, _ = gathererFor(reg)

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "psim_rpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "psim_rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "psim_rpc_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"service", "method"}), "psim_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &RPCCollector{Requests: requests, Durations: durations}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *RPCCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.Requests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		c.Durations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It returns "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(fullMethod, "/")
	if !ok || service == "" || method == "" || strings.Contains(method, "/") {
		return "unknown", "unknown"
	}
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	return service, method
}
