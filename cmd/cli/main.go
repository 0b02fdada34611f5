package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qrnglab/internal/config"
	"qrnglab/internal/container"
	"qrnglab/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qrnglab",
		Short: "Statistical analysis of QRNG intention sessions",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newSimulateCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newReportsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from the environment and applies mutate
// before validation of the combined result.
func loadConfig(mutate func(cfg *config.Config)) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		mutate(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, nil, err
		}
	}
	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withContainer initializes the container for the duration of fn
func withContainer(ctx context.Context, mutate func(cfg *config.Config), fn func(c *container.Container) error) error {
	cfg, logger, err := loadConfig(mutate)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := container.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	defer c.Shutdown(ctx)
	return fn(c)
}
