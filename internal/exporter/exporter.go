// Package exporter writes forecast tables as CSV, XLSX or zipped CSV,
// choosing the format from the file extension.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/drstein77/salesforecast/internal/compress"
	"github.com/drstein77/salesforecast/internal/models"
)

const (
	DateLayout = "2006-01-02"
	SheetName  = "forecast"
)

var (
	resultHeader   = []string{"date", "shop_id", "yhat", "yhat_lower", "yhat_upper", "shop_name"}
	forecastHeader = []string{"date", "shop_id", "yhat", "yhat_lower", "yhat_upper"}
)

// table is a header plus rows of string, int, float64 or time.Time cells.
type table struct {
	header []string
	rows   [][]any
}

// WriteResults writes next-month forecasts to path.
func WriteResults(path string, results []models.Result) error {
	t := table{header: resultHeader, rows: make([][]any, len(results))}
	for i, r := range results {
		t.rows[i] = []any{r.Date, r.ShopID, r.Yhat, r.YhatLower, r.YhatUpper, r.ShopName}
	}
	return write(path, t)
}

// WriteForecasts writes every fitted and forecast point to path.
func WriteForecasts(path string, points []models.ForecastPoint) error {
	t := table{header: forecastHeader, rows: make([][]any, len(points))}
	for i, p := range points {
		t.rows[i] = []any{p.Date, p.ShopID, p.Yhat, p.YhatLower, p.YhatUpper}
	}
	return write(path, t)
}

func write(path string, t table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		err = writeCSVFile(path, t)
	case ".xlsx":
		err = writeXLSX(path, t)
	case ".zip":
		err = writeZip(path, t)
	default:
		err = fmt.Errorf("unsupported output format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

func writeCSVFile(path string, t table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeZip(path string, t table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	member := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".csv"
	zw, err := compress.NewZipWriter(f, member)
	if err != nil {
		return err
	}
	if err := writeCSV(zw, t); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, t table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	record := make([]string, len(t.header))
	for _, row := range t.rows {
		for i, cell := range row {
			record[i] = format(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(path string, t table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	header := make([]any, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	for i, row := range t.rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			if d, ok := cell.(time.Time); ok {
				cells[j] = d.Format(DateLayout)
				continue
			}
			cells[j] = cell
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, axis, &cells); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func format(cell any) string {
	switch v := cell.(type) {
	case time.Time:
		return v.Format(DateLayout)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
