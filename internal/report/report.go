// Package report persists implied volatility solves as JSON and CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/contactkeval/implied-vol/internal/calculator"
)

const (
	JSONFile = "solve.json"
	CSVFile  = "solves.csv"
)

var csvHeader = []string{"time", "symbol", "kind", "spot", "strike", "days", "rate", "market_price", "volatility", "iterations", "message", "error"}

// Record is one solve with the inputs it was computed from.
type Record struct {
	Time       time.Time       `json:"time"`
	Symbol     string          `json:"symbol,omitempty"`
	Source     string          `json:"source,omitempty"`
	Form       calculator.Form `json:"input"`
	Volatility float64         `json:"volatility"`
	Percent    string          `json:"percent,omitempty"`
	Iterations int             `json:"iterations"`
	Message    string          `json:"message"`
	Error      string          `json:"error,omitempty"`
}

// NewRecord captures a calculator outcome for form f.
func NewRecord(at time.Time, f calculator.Form, out calculator.Outcome) Record {
	rec := Record{
		Time:       at.UTC(),
		Form:       f,
		Volatility: out.Volatility,
		Percent:    out.Percent,
		Iterations: out.Iterations,
		Message:    out.Message,
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	return rec
}

// WriteJSON writes rec to <outdir>/solve.json, replacing any previous file.
func WriteJSON(rec Record, outdir string) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, JSONFile), b, 0644)
}

// AppendCSV appends rec to <outdir>/solves.csv, writing the header when the
// file is new.
func AppendCSV(rec Record, outdir string) error {
	path := filepath.Join(outdir, CSVFile)
	_, statErr := os.Stat(path)
	newFile := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", CSVFile, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	row := []string{
		rec.Time.Format(time.RFC3339),
		rec.Symbol,
		rec.Form.Kind,
		rec.Form.Spot,
		rec.Form.Strike,
		rec.Form.Days,
		rec.Form.Rate,
		rec.Form.MarketPrice,
		strconv.FormatFloat(rec.Volatility, 'f', 6, 64),
		strconv.Itoa(rec.Iterations),
		rec.Message,
		rec.Error,
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
