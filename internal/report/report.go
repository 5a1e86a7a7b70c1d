// Package report writes pricing results to disk.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/contactkeval/option-lattice/internal/smile"
)

// PriceRow is one line of a price table, e.g. a convergence sweep.
type PriceRow struct {
	Kind     string  `json:"kind"`
	Steps    int     `json:"steps"`
	Price    float64 `json:"price"`
	Analytic float64 `json:"analytic,omitempty"`
}

// WriteJSON writes v, indented, to outdir/name.
func WriteJSON(v any, outdir, name string) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, name), b, 0644)
}

// WriteSmileCSV writes the strike and implied volatility of each point.
// Failed points are left out.
func WriteSmileCSV(points []smile.Point, path string) error {
	rows := [][]string{{"Strike", "ImpVol"}}
	for _, p := range points {
		if p.Err != nil {
			continue
		}
		rows = append(rows, []string{formatFloat(p.Strike), formatFloat(p.Vol)})
	}
	return writeCSV(path, rows)
}

// WritePricesCSV writes a price table. The error column is the difference
// from the analytic price and stays empty when none is known.
func WritePricesCSV(rows []PriceRow, path string) error {
	out := [][]string{{"kind", "steps", "price", "analytic", "error"}}
	for _, r := range rows {
		analytic, diff := "", ""
		if r.Analytic != 0 {
			analytic = formatFloat(r.Analytic)
			diff = formatFloat(r.Price - r.Analytic)
		}
		out = append(out, []string{r.Kind, strconv.Itoa(r.Steps), formatFloat(r.Price), analytic, diff})
	}
	return writeCSV(path, out)
}

func writeCSV(path string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
