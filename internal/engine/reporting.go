package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Summary condenses a finished backtest for export.
type Summary struct {
	StartDate   time.Time       `json:"startDate"`
	Days        int             `json:"days"`
	TotalOrders int             `json:"totalOrders"`
	TotalFills  int             `json:"totalFills"`
	InitialCash decimal.Decimal `json:"initialCash"`
	FinalLevel  decimal.Decimal `json:"finalLevel"`
	NetReturn   decimal.Decimal `json:"netReturn"`
	Performance []DatedLevel    `json:"performance"`
}

func (b *Backtest) Summary() Summary {
	s := Summary{
		StartDate:   b.startDate,
		Days:        len(b.performance),
		TotalOrders: len(b.orders),
		TotalFills:  len(b.fills),
		InitialCash: b.initialCash,
		Performance: b.Performance(),
	}
	if len(b.performance) > 0 {
		s.FinalLevel = b.performance[len(b.performance)-1].Level
		s.NetReturn = s.FinalLevel.Sub(b.initialCash)
	}
	return s
}

// WriteSummaryJSON writes the summary to any io.Writer as indented JSON.
func WriteSummaryJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteSummaryJSONFile writes the summary to a file at the given path.
func WriteSummaryJSONFile(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()
	return WriteSummaryJSON(f, s)
}

// WriteOrdersCSV writes the order history to any io.Writer as CSV. You can
// pass os.Stdout for debugging, or a file.
func (b *Backtest) WriteOrdersCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"order_id",
		"ticker",
		"quantity",
		"type",
		"status",
		"source",
		"generation_time", // RFC3339
		"execution_time",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, o := range b.orders {
		record := []string{
			o.Id,
			o.Instrument.Ticker,
			o.Quantity.String(),
			string(o.OrderType),
			string(o.Status),
			o.Source,
			o.GenerationTime.Format(time.RFC3339),
			o.ExecutionTime.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WritePerformanceCSV writes the daily mark-to-market series as CSV.
func (b *Backtest) WritePerformanceCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"date", "level"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, dl := range b.performance {
		if err := cw.Write([]string{dl.Date.Format("2006-01-02"), dl.Level.String()}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteOrdersCSVFile writes the order history to a CSV file at the given path.
func (b *Backtest) WriteOrdersCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create orders file: %w", err)
	}
	defer f.Close()
	return b.WriteOrdersCSV(f)
}
