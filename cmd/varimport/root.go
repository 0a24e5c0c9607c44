package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "varimport",
		Short: "varimport ingests VCF variant data into a relational store",
		Long: `varimport parses Variant Call Format (VCF) files, resolves each variant
to an owning gene, deduplicates against existing records, and commits
results in batched transactions with per-record failure isolation.

Configuration is read from ~/.varimport.yaml and VARIMPORT_* environment
variables; CLI flags take precedence.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.varimport.yaml)")

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig(cfgFile string) error {
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", defaultDSN())
	viper.SetDefault("import.batch_size", 100)
	viper.SetDefault("import.padding", 1000)
	viper.SetDefault("import.workers", 1)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".varimport")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VARIMPORT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func defaultDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "varimport.db"
	}
	return filepath.Join(home, ".varimport", "varimport.db")
}

// newLogger builds a zap logger from the logging config.
func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if viper.GetString("logging.format") == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
