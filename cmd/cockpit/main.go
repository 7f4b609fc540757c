package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cockpit/internal/app"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "cockpit",
		Short:         "Blog content resolver and MDX image pipeline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	load := func(ctx context.Context) (*app.Runtime, error) {
		return loadRuntime(ctx, configPath)
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(analyzeCmd(load))
	rootCmd.AddCommand(imagesCmd(load))
	rootCmd.AddCommand(statsCmd(load))

	return rootCmd
}

type runtimeLoader func(ctx context.Context) (*app.Runtime, error)

func loadRuntime(ctx context.Context, configPath string) (*app.Runtime, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return rt, nil
}

func closeRuntime(rt *app.Runtime) {
	if err := rt.Close(); err != nil {
		rt.Logger.Warn("close runtime", zap.Error(err))
	}
	_ = rt.Logger.Sync()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
