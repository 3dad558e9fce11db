package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/torosent/viking/internal/config"
	"github.com/torosent/viking/internal/ledger"
	"github.com/torosent/viking/internal/logging"
	"github.com/torosent/viking/internal/metrics"
	"github.com/torosent/viking/internal/runner"
	"github.com/torosent/viking/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

type raidOptions struct {
	file     string
	campaign string
	loot     string
}

func newRaidCommand(stderr io.Writer) *cobra.Command {
	var opts raidOptions
	cmd := &cobra.Command{
		Use:   "raid",
		Short: "Run a campaign against its targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return raid(ctx, cmd, opts, stderr)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Campaign document (YAML)")
	cmd.Flags().StringVarP(&opts.campaign, "campaign", "c", "", "Name of the campaign to run")
	cmd.Flags().StringVarP(&opts.loot, "loot", "l", "", "Write a JSON line per request to this ledger file")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("campaign")
	config.RegisterSettingsFlags(cmd.Flags())
	return cmd
}

func raid(ctx context.Context, cmd *cobra.Command, opts raidOptions, stderr io.Writer) (err error) {
	settings, err := config.LoadSettings(cmd.Flags())
	if err != nil {
		return err
	}

	cfg, err := config.NewLoader(version).Load(opts.file)
	if err != nil {
		return err
	}
	campaign, err := cfg.Campaign(opts.campaign)
	if err != nil {
		return err
	}

	runID := ulid.Make().String()
	logger, err := logging.New(settings.LogLevel, settings.LogFormat, stderr)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("run_id", runID))
	defer func() { _ = logger.Sync() }()

	provider, err := tracing.Init(ctx, settings.Tracing, runID)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := provider.Shutdown(sctx); serr != nil {
			logger.Warn("tracing shutdown", zap.Error(serr))
		}
	}()

	ropts := runner.Options{
		Out:     stderr,
		Logger:  logger,
		Tracing: provider,
	}

	if settings.MetricsAddr != "" {
		exporter := metrics.NewExporter()
		srv, serr := exporter.Start(settings.MetricsAddr)
		if serr != nil {
			return fmt.Errorf("metrics listener: %w", serr)
		}
		logger.Info("serving metrics", zap.String("addr", srv.Addr()))
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if serr := srv.Shutdown(sctx); serr != nil {
				logger.Warn("metrics shutdown", zap.Error(serr))
			}
		}()
		ropts.Exporter = exporter
	}

	if opts.loot != "" {
		w, lerr := ledger.Open(opts.loot)
		if lerr != nil {
			return lerr
		}
		defer func() {
			err = errors.Join(err, w.Close())
		}()
		ropts.Ledger = w
	}

	res, err := runner.New(ropts).Run(ctx, opts.campaign, campaign)
	if err != nil {
		return err
	}
	if res.Interrupted {
		logger.Warn("raid interrupted", zap.Int("phases_completed", len(res.Phases)))
	}
	return nil
}
