package simserver

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/internal/observability"
	"github.com/signalsfoundry/psim/simulation"
)

// NewGRPCServer returns a gRPC server with SimulationService registered for
// sim. Calls are traced through otelgrpc, logged under the simulation run id
// and counted by metrics when it is non-nil.
func NewGRPCServer(sim *simulation.Shared, log logging.Logger, metrics *observability.RPCCollector, opts ...grpc.ServerOption) *grpc.Server {
	if log == nil {
		log = logging.Noop()
	}
	interceptors := []grpc.UnaryServerInterceptor{
		RunIDUnaryServerInterceptor(log, sim.ID()),
		TracingUnaryServerInterceptor(),
	}
	if metrics != nil {
		interceptors = append(interceptors, metrics.UnaryServerInterceptor())
	}

	serverOpts := append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}, opts...)

	server := grpc.NewServer(serverOpts...)
	RegisterSimulationServiceServer(server, NewService(sim, log))
	return server
}
