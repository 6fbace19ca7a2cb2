package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingFuture is the handle returned by an asynchronous Calc. Result
// blocks until the underlying valuation completes. A synchronous Calc
// returns an already-completed future.
type PricingFuture struct {
	done  chan struct{}
	value decimal.Decimal
	err   error
}

func newPricingFuture() *PricingFuture {
	return &PricingFuture{done: make(chan struct{})}
}

func completedFuture(value decimal.Decimal, err error) *PricingFuture {
	f := newPricingFuture()
	f.complete(value, err)
	return f
}

// complete must be called exactly once.
func (f *PricingFuture) complete(value decimal.Decimal, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

func (f *PricingFuture) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *PricingFuture) Result() (decimal.Decimal, error) {
	<-f.done
	return f.value, f.err
}

// DatedValue pairs a valuation with the pricing date it was computed for.
type DatedValue struct {
	Date  time.Time
	Value decimal.Decimal
}

// HistoricalPricingFuture aggregates one sub-future per pricing date. It
// resolves only once every per-date valuation has resolved, and preserves
// the one-to-one correspondence between input dates and results.
type HistoricalPricingFuture struct {
	done   chan struct{}
	values []DatedValue
	err    error
}

func newHistoricalPricingFuture() *HistoricalPricingFuture {
	return &HistoricalPricingFuture{done: make(chan struct{})}
}

func (f *HistoricalPricingFuture) complete(values []DatedValue, err error) {
	f.values = values
	f.err = err
	close(f.done)
}

func (f *HistoricalPricingFuture) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until every per-date valuation resolves. Values come back
// in the same order as the context's date sequence. The first per-date
// failure fails the aggregate.
func (f *HistoricalPricingFuture) Result() ([]DatedValue, error) {
	<-f.done
	return f.values, f.err
}

// ResultMap is Result keyed by date for callers that look values up rather
// than iterate them.
func (f *HistoricalPricingFuture) ResultMap() (map[time.Time]decimal.Decimal, error) {
	values, err := f.Result()
	if err != nil {
		return nil, err
	}
	byDate := make(map[time.Time]decimal.Decimal, len(values))
	for _, dv := range values {
		byDate[dv.Date] = dv.Value
	}
	return byDate, nil
}
