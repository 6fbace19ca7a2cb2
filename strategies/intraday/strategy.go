package intraday

import (
	"time"

	"github.com/shopspring/decimal"

	"marquee/internal/engine"
	"marquee/types"
)

// PeriodicTrigger fires at fixed times of day on every business day of the
// run. It is the simplest scheduling trigger: systematic strategies that buy
// at the same clock times each day are built from it.
type PeriodicTrigger struct {
	times   []time.Duration
	actions []engine.Action
}

func NewPeriodicTrigger(times []time.Duration, actions ...engine.Action) *PeriodicTrigger {
	return &PeriodicTrigger{
		times:   times,
		actions: actions,
	}
}

func (t *PeriodicTrigger) HasTriggered(state time.Time, _ *engine.Backtest) engine.TriggerInfo {
	midnight := time.Date(state.Year(), state.Month(), state.Day(), 0, 0, 0, 0, state.Location())
	offset := state.Sub(midnight)
	for _, tt := range t.times {
		if offset == tt {
			return engine.TriggerInfo{Triggered: true}
		}
	}
	return engine.TriggerInfo{}
}

func (t *PeriodicTrigger) Actions() []engine.Action {
	return t.actions
}

func (t *PeriodicTrigger) TriggerTimes() []time.Duration {
	return t.times
}

// NewScheduledBuys builds a strategy that buys the given tickers at each of
// the given times of day, holding each trade for holdingDays trading days
// (zero holds to the end of the run).
func NewScheduledBuys(tickers []string, quantity decimal.Decimal, holdingDays int, times []time.Duration) engine.Strategy {
	instruments := make([]types.Instrument, 0, len(tickers))
	for _, ticker := range tickers {
		instruments = append(instruments, types.NewInstrument(ticker, quantity))
	}
	action := engine.NewAddTradeAction("scheduled-buy", instruments, holdingDays)
	return engine.Strategy{
		Triggers: []engine.Trigger{NewPeriodicTrigger(times, action)},
	}
}
