// Command psim builds and runs catalog simulations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/internal/observability"
)

var version = "0.1.0" // set at build time with -ldflags "-X main.version=..."

// app carries process-wide settings shared by the subcommands.
type app struct {
	v   *viper.Viper
	log logging.Logger
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logging.Noop()}
	a.v.SetEnvPrefix("PSIM")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "psim",
		Short:         "psim - spacecraft guidance, navigation and control simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded into the environment when present")
	root.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().String("log-format", "text", "log format (text|json)")
	mustBind(a.v, root.PersistentFlags())

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newListCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	mustBind(a.v, cmd.Flags())
	if path := a.v.GetString("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	a.log = logging.New(logging.Config{
		Level:  a.v.GetString("log-level"),
		Format: a.v.GetString("log-format"),
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

// tracing installs the tracer provider described by PSIM_TRACING_* and
// returns its shutdown function.
func (a *app) tracing(ctx context.Context) (func(), error) {
	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), a.log)
	if err != nil {
		return nil, err
	}
	return func() { observability.ShutdownWithTimeout(context.Background(), shutdown, a.log) }, nil
}

// loadConfig reads the simulation configuration named by --config. Without
// any file the configuration is empty.
func (a *app) loadConfig() (*config.Configuration, error) {
	paths := a.v.GetStringSlice("config")
	if len(paths) == 0 {
		return config.Empty(), nil
	}
	return config.Load(paths...)
}

func mustBind(v *viper.Viper, flags *pflag.FlagSet) {
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "psim v%s\n", version)
		},
	}
}
