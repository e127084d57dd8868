// Package main provides the exoplanet binary entry point.
// It trains the cross-survey disposition classifier, classifies uploaded
// candidate tables and runs the inbox watcher.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/exoplanet/config"
	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/pkg/log"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "exoplanet"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Exoplanet candidate disposition classifier",
		Long: `exoplanet trains a gradient boosted classifier on the Kepler, TESS and K2
candidate tables and labels new candidates as CONFIRMED, CANDIDATE or
FALSE POSITIVE, abstaining with UNKNOWN below a confidence threshold.

Configuration is read from --config, or from the nearest exoplanet.yaml,
and command-line flags override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		trainCmd(a),
		classifyCmd(a),
		previewCmd(a),
		runsCmd(a),
		watchCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := log.SetupLogger(os.Stderr, cfg.Log.Level); err != nil {
		return errors.Wrap(err, "configure logging")
	}
	a.cfg = cfg
	return nil
}
