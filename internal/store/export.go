package store

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/jrr00064/mapharvest/internal/dedup"
)

// exportHeader is the column order for tabular exports.
var exportHeader = []string{
	"name", "address", "phone", "website", "category", "rating", "reviews",
	"lat", "lng", "source", "sources",
}

// ExportCSV writes records as CSV with a header row.
func ExportCSV(w io.Writer, records []dedup.Canonical) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return eris.Wrap(err, "export: csv header")
	}
	for _, rec := range records {
		if err := cw.Write(exportRow(rec)); err != nil {
			return eris.Wrapf(err, "export: csv row %s", rec.Name)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: csv flush")
}

// ExportJSON writes records as an indented JSON array.
func ExportJSON(w io.Writer, records []dedup.Canonical) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []dedup.Canonical{}
	}
	return eris.Wrap(enc.Encode(records), "export: json encode")
}

// ExportXLSX writes records to a single-sheet workbook.
func ExportXLSX(w io.Writer, records []dedup.Canonical) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Businesses")
	if err != nil {
		return eris.Wrap(err, "export: xlsx add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportHeader {
		header.AddCell().Value = col
	}
	for _, rec := range records {
		row := sheet.AddRow()
		for _, cell := range exportRow(rec) {
			row.AddCell().Value = cell
		}
	}
	return eris.Wrap(f.Write(w), "export: xlsx write")
}

func exportRow(rec dedup.Canonical) []string {
	return []string{
		rec.Name,
		rec.Address,
		rec.Phone,
		rec.Website,
		rec.Category,
		strconv.FormatFloat(rec.Rating, 'f', -1, 64),
		strconv.Itoa(rec.Reviews),
		strconv.FormatFloat(rec.Lat, 'f', -1, 64),
		strconv.FormatFloat(rec.Lng, 'f', -1, 64),
		rec.Source,
		strings.Join(rec.Sources, ";"),
	}
}
