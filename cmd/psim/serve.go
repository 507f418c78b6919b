package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/internal/monitor"
	"github.com/signalsfoundry/psim/internal/observability"
	"github.com/signalsfoundry/psim/internal/recorder"
	"github.com/signalsfoundry/psim/internal/simserver"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/simulations"
	"github.com/signalsfoundry/psim/timectrl"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <simulation>",
		Short: "Serve a catalog simulation over gRPC and HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd, args[0])
		},
	}
	f := cmd.Flags()
	f.StringSlice("config", nil, "configuration files (.cfg, .hcl, .yaml)")
	f.String("grpc-addr", ":50051", "TCP address of the SimulationService gRPC server")
	f.String("http-addr", ":8080", "TCP address of the HTTP monitor and /metrics")
	f.String("mode", "realtime", "pacing mode for /api/run (realtime|accelerated)")
	f.Duration("tick", time.Second, "wall-clock interval between steps in realtime mode")
	f.Bool("autorun", false, "start stepping immediately")
	f.String("record", "", "SQLite file to record field samples to")
	f.StringSlice("fields", nil, "fields to record (default all)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, name string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	shutdown, err := a.tracing(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	mode, err := timectrl.ParseMode(a.v.GetString("mode"))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	simMetrics, err := observability.NewSimCollector(reg)
	if err != nil {
		return err
	}
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return err
	}

	opts := []simulation.Option{
		simulation.WithLogger(a.log),
		simulation.WithMetricsRecorder(simMetrics),
	}
	if path := a.v.GetString("record"); path != "" {
		rec, err := recorder.Open(path,
			recorder.WithFields(a.v.GetStringSlice("fields")...),
			recorder.WithLogger(a.log),
			recorder.WithSampleCounter(simMetrics),
		)
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, simulation.WithHook(rec))
	}

	sim, err := simulations.New(cfg, name, opts...)
	if err != nil {
		return err
	}
	ctx = logging.ContextWithRunID(ctx, sim.ID())
	shared := simulation.NewShared(sim)
	runner := timectrl.NewRunner(shared, a.v.GetDuration("tick"), mode)

	grpcLis, err := net.Listen("tcp", a.v.GetString("grpc-addr"))
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", a.v.GetString("http-addr"))
	if err != nil {
		grpcLis.Close()
		return err
	}

	grpcServer := simserver.NewGRPCServer(shared, a.log, rpcMetrics)
	mon := monitor.New(shared,
		monitor.WithRunner(runner),
		monitor.WithMetricsHandler(simMetrics.Handler()),
		monitor.WithLogger(a.log),
	)

	errs := make(chan error, 2)
	go func() {
		a.log.Info(ctx, "starting SimulationService", logging.String("addr", grpcLis.Addr().String()))
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errs <- err
		}
	}()
	go func() {
		if err := mon.Serve(ctx, httpLis); err != nil {
			errs <- err
		}
	}()

	if a.v.GetBool("autorun") {
		if err := mon.Start(0); err != nil {
			grpcServer.Stop()
			return err
		}
	}

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errs:
	}

	a.log.Info(ctx, "shutting down", logging.Uint64("steps", runner.Completed()))
	stop()
	if perr := mon.Pause(context.Background()); perr != nil && err == nil {
		err = perr
	}
	grpcServer.GracefulStop()
	return err
}
