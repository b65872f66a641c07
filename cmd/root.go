package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jrr00064/mapharvest/internal/config"
	"github.com/jrr00064/mapharvest/internal/grid"
)

var (
	cfg    *config.Config
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "mapharvest",
	Short: "Geographic business-listing harvester",
	Long:  "Partitions a country into a grid, fetches business listings for every land sector through rotating proxies, merges duplicates across sources, and persists the canonical set.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		if dbPath != "" {
			cfg.Store.Driver = "sqlite"
			cfg.Store.Path = dbPath
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if cfg.Harvest.CountriesFile != "" {
			n, err := grid.LoadCountries(cfg.Harvest.CountriesFile)
			if err != nil {
				return fmt.Errorf("load countries: %w", err)
			}
			zap.L().Info("custom countries loaded", zap.Int("countries", n))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
