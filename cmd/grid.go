package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jrr00064/mapharvest/internal/grid"
)

var (
	gridCountry string
	gridSize    int
	gridJSON    bool
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Preview the sector grid and its land/water split",
	RunE: func(cmd *cobra.Command, args []string) error {
		country := gridCountry
		if country == "" {
			country = cfg.Harvest.Country
		}
		size := gridSize
		if size == 0 {
			size = cfg.Harvest.GridSize
		}

		g, err := grid.New(country, size)
		if err != nil {
			return err
		}
		g.Generate()
		land := g.FilterLand()
		stats := g.Stats()

		if gridJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"stats":   stats,
				"sectors": land,
			})
		}

		fmt.Printf("Country:        %s\n", stats.Country)
		fmt.Printf("Grid:           %dx%d (%d sectors)\n", stats.GridSize, stats.GridSize, stats.TotalSectors)
		fmt.Printf("Land sectors:   %d\n", stats.LandSectors)
		fmt.Printf("Water sectors:  %d (%.1f%% eliminated)\n", stats.WaterSectors, stats.WaterElimination*100)
		return nil
	},
}

var gridCountriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the known countries",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range grid.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	gridCmd.Flags().StringVar(&gridCountry, "country", "", "country (default from config)")
	gridCmd.Flags().IntVar(&gridSize, "grid-size", 0, "grid dimension (default from config)")
	gridCmd.Flags().BoolVar(&gridJSON, "json", false, "emit stats and land sectors as JSON")
	gridCmd.AddCommand(gridCountriesCmd)
	rootCmd.AddCommand(gridCmd)
}
