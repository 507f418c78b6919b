package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/internal/recorder"
	"github.com/signalsfoundry/psim/simulation"
	"github.com/signalsfoundry/psim/simulations"
	"github.com/signalsfoundry/psim/timectrl"
	"github.com/signalsfoundry/psim/types"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <simulation>",
		Short: "Build a catalog simulation, step it and print its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0])
		},
	}
	f := cmd.Flags()
	f.StringSlice("config", nil, "configuration files (.cfg, .hcl, .yaml); later files may not repeat keys")
	f.Uint64("steps", 1, "number of steps to take")
	f.String("mode", "accelerated", "pacing mode (realtime|accelerated)")
	f.Duration("tick", 0, "wall-clock interval between steps in realtime mode")
	f.String("record", "", "SQLite file to record field samples to")
	f.StringSlice("fields", nil, "fields to print and record (default all)")
	return cmd
}

func (a *app) run(cmd *cobra.Command, name string) error {
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
	fields := a.v.GetStringSlice("fields")

	opts := []simulation.Option{simulation.WithLogger(a.log)}
	var rec *recorder.Recorder
	if path := a.v.GetString("record"); path != "" {
		rec, err = recorder.Open(path, recorder.WithFields(fields...), recorder.WithLogger(a.log))
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

	steps := a.v.GetUint64("steps")
	runner := timectrl.NewRunner(sim, a.v.GetDuration("tick"), mode)
	a.log.Info(ctx, "running simulation",
		logging.String("simulation", name),
		logging.Uint64("steps", steps),
		logging.String("mode", mode.String()),
	)
	if steps > 0 {
		if err := runner.Run(ctx, steps); err != nil {
			return err
		}
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			return err
		}
	}

	if len(fields) == 0 {
		fields = sim.Fields()
	}
	return printFields(cmd.OutOrStdout(), sim, fields)
}

func printFields(w io.Writer, sim *simulation.Simulation, names []string) error {
	for _, name := range names {
		f, err := sim.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s = %s\n", name, formatValue(f.Any()))
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case types.String:
		return fmt.Sprintf("%q", x)
	case types.Matrix:
		rows := types.MatrixRows(x)
		parts := make([]string, len(rows))
		for i, r := range rows {
			parts[i] = strings.Trim(fmt.Sprint(r), "[]")
		}
		return "[" + strings.Join(parts, "; ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
