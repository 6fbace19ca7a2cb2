package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"marquee/types"
)

var ErrNoPrice = errors.New("no price for ticker")

// DataHandler is the engine's window onto market data. Update advances the
// view to a timestamp; Price looks a price up, never reading ahead of the
// view.
type DataHandler interface {
	Update(state time.Time)
	Price(ticker string, at time.Time) (decimal.Decimal, error)
}

// DataManager is an in-memory DataHandler preloaded with intraday price
// series, typically from the repository.
type DataManager struct {
	series map[string][]types.PricePoint
	view   time.Time
}

func NewDataManager() *DataManager {
	return &DataManager{series: make(map[string][]types.PricePoint)}
}

// AddSeries registers the price series for a ticker, kept sorted ascending.
func (dm *DataManager) AddSeries(ticker string, points []types.PricePoint) {
	sorted := make([]types.PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	dm.series[ticker] = sorted
}

func (dm *DataManager) Update(state time.Time) {
	dm.view = state
}

// Price returns the last observation at or before the requested time,
// clamped to the current view.
func (dm *DataManager) Price(ticker string, at time.Time) (decimal.Decimal, error) {
	points, ok := dm.series[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, ticker)
	}
	if !dm.view.IsZero() && at.After(dm.view) {
		at = dm.view
	}
	// first index strictly after `at`
	idx := sort.Search(len(points), func(i int) bool { return points[i].Time.After(at) })
	if idx == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s at %s", ErrNoPrice, ticker, at.Format(time.RFC3339))
	}
	return points[idx-1].Price, nil
}
