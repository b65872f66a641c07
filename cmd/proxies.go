package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jrr00064/mapharvest/internal/config"
	"github.com/jrr00064/mapharvest/internal/proxy"
)

var proxiesOut string

func proxyPath() string {
	if proxiesOut != "" {
		return proxiesOut
	}
	return cfg.Harvest.ProxyFile
}

var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "Inspect the proxy pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		proxies, err := proxy.LoadFile(proxyPath())
		if err != nil {
			return err
		}
		profile, err := config.SelectProfile(cfg.Harvest.Mode, len(proxies))
		if err != nil {
			return err
		}

		fmt.Printf("Proxy file:  %s\n", proxyPath())
		fmt.Printf("Proxies:     %d\n", len(proxies))
		fmt.Printf("Profile:     %s (%s)\n", profile.Name, profile.Description)
		return nil
	},
}

var proxiesFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download free proxy lists into the proxy file",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := proxy.FetchFree(cmd.Context(), proxyPath())
		if err != nil {
			return err
		}
		zap.L().Info("proxy list written",
			zap.String("file", proxyPath()),
			zap.Int("proxies", n),
		)
		return nil
	},
}

func init() {
	proxiesCmd.PersistentFlags().StringVarP(&proxiesOut, "out", "o", "", "proxy list file (default from config)")
	proxiesCmd.AddCommand(proxiesFetchCmd)
	rootCmd.AddCommand(proxiesCmd)
}
