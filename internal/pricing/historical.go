package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"marquee/internal/calendar"
	"marquee/types"
)

// HistoricalConfig selects the date set a historical context fans out over.
// Supply either Start (with an optional End, defaulting to today) or an
// explicit Dates sequence, never both.
type HistoricalConfig struct {
	Start time.Time
	End   time.Time
	Dates []time.Time
}

// HistoricalPricingContext amortizes a single logical calculation over many
// pricing dates: one dated sub-context per date, one valuation per
// sub-context, joined into a single aggregate future.
type HistoricalPricingContext struct {
	base  *PricingContext
	dates []time.Time
}

func NewHistoricalPricingContext(cfg HistoricalConfig, opts ...Option) (*HistoricalPricingContext, error) {
	base, err := NewPricingContext(opts...)
	if err != nil {
		return nil, err
	}

	hasRange := !cfg.Start.IsZero()
	hasDates := len(cfg.Dates) > 0
	switch {
	case hasRange && hasDates:
		return nil, fmt.Errorf("%w: must supply start or dates, not both", ErrInvalidConfiguration)
	case !hasRange && !hasDates:
		return nil, fmt.Errorf("%w: must supply start or dates", ErrInvalidConfiguration)
	}

	var dates []time.Time
	if hasRange {
		end := cfg.End
		if end.IsZero() {
			end = base.now()
		}
		dates = calendar.DateRange(cfg.Start, end, base.calendar())
		if len(dates) == 0 {
			return nil, fmt.Errorf("%w: no business days between %s and %s",
				ErrInvalidConfiguration, cfg.Start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
	} else {
		dates = make([]time.Time, len(cfg.Dates))
		for i, d := range cfg.Dates {
			dates[i] = calendar.Date(d)
		}
	}

	return &HistoricalPricingContext{base: base, dates: dates}, nil
}

// Dates returns the date sequence calculations fan out over, in the order
// results will come back.
func (hpc *HistoricalPricingContext) Dates() []time.Time {
	out := make([]time.Time, len(hpc.dates))
	copy(out, hpc.dates)
	return out
}

// Calc fans the calculation out: for every date a dated sub-context is
// opened (async, inheriting location, csa term, cache and visibility flags
// from this context) and one valuation is issued against the per-date close
// market. The returned aggregate resolves once all per-date results have.
func (hpc *HistoricalPricingContext) Calc(instrument types.Instrument, measure types.RiskMeasure) (*HistoricalPricingFuture, error) {
	results := make([]DatedValue, len(hpc.dates))
	errs := make([]error, len(hpc.dates))

	var workers *pool.Pool

	err := hpc.base.Do(func() error {
		if err := ambient.checkLocations(hpc.base); err != nil {
			return err
		}
		valuer := ambient.resolveValuer(hpc.base)
		if valuer == nil {
			return ErrNoValuer
		}

		cal := hpc.base.calendar()
		now := hpc.base.now()
		loc := hpc.base.MarketDataLocation()
		workers = pool.New().WithMaxGoroutines(hpc.base.MaxConcurrent())

		for i, d := range hpc.dates {
			sub, err := NewPricingContext(
				WithPricingDate(d),
				WithMarket(CloseMarket{Date: closeMarketDate(loc, d, cal, now), Location: loc}),
				WithAsync(true),
				WithCSATerm(hpc.base.CSATerm()),
				WithUseCache(hpc.base.UseCache()),
				WithVisibleToGS(hpc.base.VisibleToGS()),
				WithCalendar(cal),
			)
			if err != nil {
				return err
			}

			// Scoping resolves the request; the backend call itself runs on
			// the worker pool so dates price in parallel.
			var req ValuationRequest
			if err := sub.Do(func() error {
				req = sub.effectiveRequest()
				return nil
			}); err != nil {
				return err
			}

			i, d, req := i, d, req
			workers.Go(func() {
				v, err := valuer.Price(context.Background(), instrument, measure, req)
				results[i] = DatedValue{Date: d, Value: v}
				errs[i] = err
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	agg := newHistoricalPricingFuture()
	go func() {
		workers.Wait()
		for _, e := range errs {
			if e != nil {
				agg.complete(nil, e)
				return
			}
		}
		agg.complete(results, nil)
	}()
	return agg, nil
}
