package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jrr00064/mapharvest/internal/store"
)

var (
	exportOut      string
	exportFormat   string
	exportCategory string
	exportSource   string
	exportLimit    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export harvested businesses to csv, json, or xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format := exportFormat
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(exportOut), ".")
		}
		if format == "" {
			format = "csv"
		}
		switch format {
		case "csv", "json", "xlsx":
		default:
			return eris.Errorf("export: unknown format %q (want csv, json, or xlsx)", format)
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := st.ListBusinesses(ctx, store.ListFilter{
			Category: exportCategory,
			Source:   exportSource,
			Limit:    exportLimit,
		})
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "export: create %s", exportOut)
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "csv":
			err = store.ExportCSV(w, records)
		case "json":
			err = store.ExportJSON(w, records)
		case "xlsx":
			err = store.ExportXLSX(w, records)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("format", format),
			zap.String("out", exportOut),
			zap.Int("records", len(records)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "csv, json, or xlsx (default inferred from --out)")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "filter by category")
	exportCmd.Flags().StringVar(&exportSource, "source", "", "filter by source")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max records to export")
	rootCmd.AddCommand(exportCmd)
}
