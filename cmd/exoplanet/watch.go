package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/exoplanet/pkg/errors"
	"github.com/YuminosukeSato/exoplanet/serving"
	"github.com/YuminosukeSato/exoplanet/sklearn/drift"
)

func watchCmd(a *app) *cobra.Command {
	var (
		inbox       string
		outbox      string
		metricsAddr string
		threshold   float64
		settle      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Classify CSV files dropped into the inbox and hot-reload the model",
		Long: `watch classifies every CSV written to the inbox directory into
<outbox>/<name>.predictions.csv. The survey is taken from the file name prefix
(kepler_, tess_, k2_) or the configured default. When the artifact file is
replaced, for example by "exoplanet train", the new model is loaded without
restarting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("inbox") {
				cfg.Watch.Inbox = inbox
			}
			if cmd.Flags().Changed("outbox") {
				cfg.Watch.Outbox = outbox
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Watch.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Inference.Threshold = threshold
			}
			if cmd.Flags().Changed("settle") {
				cfg.Watch.Settle = settle
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			m := serving.NewMetrics()
			reg := serving.NewRegistry(cfg.Artifacts.ModelPath).WithMetrics(m)
			if err := reg.Load(); err != nil {
				return err
			}
			svc := serving.NewService(reg, cfg.Inference.IDColumns).
				WithMetrics(m).
				WithDriftMonitor(drift.NewDDM())

			w, err := serving.NewWatcher(serving.WatchConfig{
				Inbox:     cfg.Watch.Inbox,
				Outbox:    cfg.Watch.Outbox,
				Survey:    cfg.WatchSurvey(),
				Threshold: cfg.Inference.Threshold,
				Settle:    cfg.Watch.Settle,
			}, svc)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return w.Run(ctx) })
			if cfg.Watch.MetricsAddr != "" {
				g.Go(func() error { return m.Serve(ctx, cfg.Watch.MetricsAddr) })
			}
			g.Go(func() error {
				for range w.Results() {
				}
				return nil
			})
			err = g.Wait()
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&inbox, "inbox", "", "Directory to watch for CSV files")
	cmd.Flags().StringVar(&outbox, "outbox", "", "Directory for prediction files")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", `Prometheus listen address ("" disables)`)
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum top-class probability, in (0, 1]")
	cmd.Flags().DurationVar(&settle, "settle", 0, "Quiet period before a file is read")

	return cmd
}
