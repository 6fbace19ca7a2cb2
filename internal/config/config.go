package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"marquee/types"
)

const dateLayout = "2006-01-02"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	DatabaseURL string       `yaml:"database_url"`
	Run         RunConfig    `yaml:"run"`
	Report      ReportConfig `yaml:"report"`
}

type RunConfig struct {
	Tickers      []string `yaml:"tickers"`
	Quantity     string   `yaml:"quantity"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Location     string   `yaml:"location"`
	InitialCash  string   `yaml:"initial_cash"`
	HoldingDays  int      `yaml:"holding_days"`
	TriggerTimes []string `yaml:"trigger_times"`
	// ValuationTime is the end-of-day mark, e.g. "23:00". Empty means the
	// engine default.
	ValuationTime string `yaml:"valuation_time"`
	ShowProgress  bool   `yaml:"show_progress"`
}

type ReportConfig struct {
	SummaryPath     string `yaml:"summary_path"`
	OrdersPath      string `yaml:"orders_path"`
	PerformancePath string `yaml:"performance_path"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Run.Quantity == "" {
		c.Run.Quantity = "1"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads the config but does not default or validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if len(c.Run.Tickers) == 0 {
		return errors.New("run.tickers is required")
	}
	start, err := c.Run.StartDate()
	if err != nil {
		return err
	}
	end, err := c.Run.EndDate()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("run.end %s precedes run.start %s", c.Run.End, c.Run.Start)
	}
	if c.Run.Location != "" && !types.PricingLocation(c.Run.Location).IsValid() {
		return fmt.Errorf("run.location %q is not a known pricing location", c.Run.Location)
	}
	if _, err := c.Run.Cash(); err != nil {
		return err
	}
	if _, err := c.Run.TradeQuantity(); err != nil {
		return err
	}
	if c.Run.HoldingDays < 0 {
		return errors.New("run.holding_days cannot be negative")
	}
	if _, err := c.Run.Times(); err != nil {
		return err
	}
	if c.Run.ValuationTime != "" {
		if _, err := ParseTimeOfDay(c.Run.ValuationTime); err != nil {
			return fmt.Errorf("run.valuation_time: %w", err)
		}
	}
	return nil
}

func (r RunConfig) StartDate() (time.Time, error) {
	t, err := time.Parse(dateLayout, r.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("run.start: %w", err)
	}
	return t, nil
}

func (r RunConfig) EndDate() (time.Time, error) {
	t, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("run.end: %w", err)
	}
	return t, nil
}

func (r RunConfig) Cash() (decimal.Decimal, error) {
	if r.InitialCash == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(r.InitialCash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("run.initial_cash: %w", err)
	}
	return d, nil
}

func (r RunConfig) TradeQuantity() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("run.quantity: %w", err)
	}
	return d, nil
}

// Times parses trigger_times into offsets from midnight.
func (r RunConfig) Times() ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(r.TriggerTimes))
	for _, s := range r.TriggerTimes {
		d, err := ParseTimeOfDay(s)
		if err != nil {
			return nil, fmt.Errorf("run.trigger_times: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseTimeOfDay converts an "HH:MM" clock string to an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse %q as HH:MM: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
