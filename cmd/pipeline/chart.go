package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chartCmd)
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Re-renders the chart from the catalog without scraping.",
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

		report, err := a.svc.RenderChart(ctx)
		if err != nil {
			slog.Error("chart failed", slog.String("err", err.Error()))
			return err
		}

		slog.Info("chart rendered", slog.String("path", report.Path), slog.String("link", report.Link))
		return nil
	},
}
