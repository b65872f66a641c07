package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jrr00064/mapharvest/internal/config"
	"github.com/jrr00064/mapharvest/internal/harvest"
	"github.com/jrr00064/mapharvest/internal/proxy"
	"github.com/jrr00064/mapharvest/internal/spider"
	"github.com/jrr00064/mapharvest/internal/store"
)

var (
	harvestQuery      string
	harvestCountry    string
	harvestMode       string
	harvestMaxSectors int
	harvestGridSize   int
	harvestProxyFile  string
	harvestSources    []string
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run a full harvest over the configured country",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hc := cfg.Harvest
		if harvestQuery != "" {
			hc.Query = harvestQuery
		}
		if harvestCountry != "" {
			hc.Country = harvestCountry
		}
		if harvestMode != "" {
			hc.Mode = harvestMode
		}
		if harvestMaxSectors > 0 {
			hc.MaxSectors = harvestMaxSectors
		}
		if harvestGridSize > 0 {
			hc.GridSize = harvestGridSize
		}
		if harvestProxyFile != "" {
			hc.ProxyFile = harvestProxyFile
		}
		if len(harvestSources) > 0 {
			hc.Sources = harvestSources
		}

		proxies, err := proxy.LoadFile(hc.ProxyFile)
		if err != nil {
			return err
		}
		profile, err := config.SelectProfile(hc.Mode, len(proxies))
		if err != nil {
			return err
		}
		zap.L().Info("profile selected",
			zap.String("profile", profile.Name),
			zap.Int("proxies", len(proxies)),
		)

		sources, err := spider.BuildSources(hc.Sources)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		sp := spider.New(profile, proxy.NewRotator(proxies), sources)
		runner := harvest.New(hc, profile, sp, st)

		run, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("harvest run recorded",
			zap.String("run", run.ID),
			zap.Int("unique", run.Unique),
		)
		return nil
	},
}

func init() {
	harvestCmd.Flags().StringVarP(&harvestQuery, "query", "q", "", "search query (default from config)")
	harvestCmd.Flags().StringVar(&harvestCountry, "country", "", "country to harvest (default from config)")
	harvestCmd.Flags().StringVar(&harvestMode, "mode", "", "profile mode: auto, fast, medium, slow")
	harvestCmd.Flags().IntVar(&harvestMaxSectors, "max-sectors", 0, "cap the number of land sectors")
	harvestCmd.Flags().IntVar(&harvestGridSize, "grid-size", 0, "grid dimension (default from config)")
	harvestCmd.Flags().StringVar(&harvestProxyFile, "proxy-file", "", "proxy list file (default from config)")
	harvestCmd.Flags().StringSliceVar(&harvestSources, "sources", nil, "sources to harvest: gmaps, osm (default from config)")
	rootCmd.AddCommand(harvestCmd)
}
