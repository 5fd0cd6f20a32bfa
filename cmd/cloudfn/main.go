package main

import (
	"log/slog"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/KotFed0t/index_composition_etl/config"
	_ "github.com/KotFed0t/index_composition_etl/internal/cloudfn"
	"github.com/KotFed0t/index_composition_etl/utils"
)

func main() {
	cfg := config.MustLoad()

	utils.SetupLogger(cfg.LogLevel)

	// the framework picks the registered function by FUNCTION_TARGET
	if os.Getenv("FUNCTION_TARGET") == "" {
		_ = os.Setenv("FUNCTION_TARGET", cfg.CloudFn.FunctionName)
	}

	slog.Info("serving function", slog.String("function", cfg.CloudFn.FunctionName), slog.String("port", cfg.CloudFn.Port))

	if err := funcframework.Start(cfg.CloudFn.Port); err != nil {
		slog.Error("funcframework.Start failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
