package main

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/index_composition_etl/config"
	"github.com/KotFed0t/index_composition_etl/utils"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pipeline",
	Short:         "Scrapes the IBOV composition, stores it and charts it.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ctx, err := setup(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(ctx, cfg)
		if err != nil {
			slog.Error("init failed", slog.String("err", err.Error()))
			return err
		}
		defer a.Close()

		res, err := a.svc.RunLocal(ctx)
		if err != nil {
			return err
		}

		slog.Info(
			"pipeline finished",
			slog.String("runID", utils.GetRunIDFromCtx(ctx)),
			slog.String("referenceDate", res.ReferenceDate),
			slog.Int("records", res.Records),
			slog.String("refinedPath", res.RefinedPath),
			slog.String("report", res.Report.Path),
			slog.String("link", res.Report.Link),
		)
		return nil
	},
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides LOG_LEVEL (debug, info, warning, error)")
}

func setup(cmd *cobra.Command) (*config.Config, context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		utils.SetupLogger("error")
		slog.Error("config error", slog.String("err", err.Error()))
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	utils.SetupLogger(cfg.LogLevel)

	ctx := utils.CreateCtxWithRunID(cmd.Context(), "")
	return cfg, ctx, nil
}
