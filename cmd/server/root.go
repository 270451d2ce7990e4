package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leavelite/internal/platform/config"
	"leavelite/internal/platform/logging"
)

var flagPolicyFile string

var rootCmd = &cobra.Command{
	Use:          "leavelite",
	Short:        "Leave request ledger service",
	Long:         "Run the leave request API, apply database migrations, or seed the first administrator.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPolicyFile, "policy", "", "Leave policy TOML file (overrides POLICY_FILE)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// bootstrap loads and validates configuration, then installs the global logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if flagPolicyFile != "" {
		policy, err := config.LoadPolicy(flagPolicyFile)
		if err != nil {
			return config.Config{}, nil, err
		}
		cfg.PolicyFile = flagPolicyFile
		cfg.Policy = policy
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}
