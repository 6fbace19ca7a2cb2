// Package engine implements the discrete-event backtest simulator: a timer
// over (business day, time-of-day) pairs, an event queue drained to empty
// per timestamp, and the dispatch from strategy triggers through action
// handlers to the simulated execution engine.
package engine

import (
	"io"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"marquee/internal/calendar"
	"marquee/types"
)

// defaultEODValuationTime applies when the valuation method specifies no
// explicit window.
const defaultEODValuationTime = 23 * time.Hour

// PredefinedAssetEngine runs strategies against predefined market data.
type PredefinedAssetEngine struct {
	data            DataHandler
	cal             calendar.Calendar
	location        types.PricingLocation
	valuationMethod types.ValuationMethod
	actions         ActionRegistry
	initialCash     decimal.Decimal
	showProgress    bool

	execution ExecutionEngine
}

type EngineOption func(*PredefinedAssetEngine)

func WithCalendar(cal calendar.Calendar) EngineOption {
	return func(e *PredefinedAssetEngine) { e.cal = cal }
}

func WithLocation(l types.PricingLocation) EngineOption {
	return func(e *PredefinedAssetEngine) { e.location = l }
}

func WithValuationMethod(m types.ValuationMethod) EngineOption {
	return func(e *PredefinedAssetEngine) { e.valuationMethod = m }
}

func WithActionRegistry(r ActionRegistry) EngineOption {
	return func(e *PredefinedAssetEngine) { e.actions = r }
}

func WithInitialCash(cash decimal.Decimal) EngineOption {
	return func(e *PredefinedAssetEngine) { e.initialCash = cash }
}

func WithProgress(show bool) EngineOption {
	return func(e *PredefinedAssetEngine) { e.showProgress = show }
}

func NewPredefinedAssetEngine(data DataHandler, opts ...EngineOption) *PredefinedAssetEngine {
	e := &PredefinedAssetEngine{
		data:        data,
		cal:         calendar.Weekday{},
		location:    types.DefaultLocation,
		actions:     DefaultActionRegistry(),
		initialCash: decimal.NewFromInt(100),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *PredefinedAssetEngine) eodValuationTime() time.Duration {
	if !e.valuationMethod.Window.IsZero() {
		return e.valuationMethod.Window.End
	}
	return defaultEODValuationTime
}

// timer builds the full timestamp sequence: every business day in
// [start, end] crossed with the deduplicated trigger times plus the EOD
// valuation time, ascending, each (date, time) pair exactly once.
func (e *PredefinedAssetEngine) timer(s Strategy, start, end time.Time) []time.Time {
	dates := calendar.DateRange(start, end, e.cal)

	seen := make(map[time.Duration]struct{})
	var times []time.Duration
	add := func(t time.Duration) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			times = append(times, t)
		}
	}
	for _, trigger := range s.Triggers {
		for _, t := range trigger.TriggerTimes() {
			add(t)
		}
	}
	add(e.eodValuationTime())
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	all := make([]time.Time, 0, len(dates)*len(times))
	for _, d := range dates {
		for _, t := range times {
			all = append(all, d.Add(t))
		}
	}
	return all
}

// RunBacktest runs the simulation over [start, end] and returns the
// accumulated backtest. A fresh accumulator and execution engine are built
// per call; errors abort the remaining timer.
func (e *PredefinedAssetEngine) RunBacktest(s Strategy, start, end time.Time) (*Backtest, error) {
	backtest := newBacktest(e.data, e.initialCash)
	backtest.SetStartDate(start)

	e.execution = NewSimulatedExecutionEngine(e.data)

	timer := e.timer(s, start, end)
	if err := e.run(s, timer, backtest); err != nil {
		return nil, err
	}
	return backtest, nil
}

func (e *PredefinedAssetEngine) run(s Strategy, timer []time.Time, backtest *Backtest) error {
	bar := e.progressBar(len(timer))
	var events eventQueue

	for _, state := range timer {
		// update to latest data
		e.data.Update(state)

		// see if any submitted orders have been executed
		fills, err := e.execution.Ping(state)
		if err != nil {
			return err
		}
		for _, fill := range fills {
			events.push(FillEvent(fill))
		}

		// new market data coming in
		events.push(MarketEvent())

		// daily valuation when it's due
		if timeOfDay(state) == e.eodValuationTime() {
			events.push(ValuationEvent())
		}

		// drain to empty; handling an event may enqueue more for this step
		for {
			event, ok := events.pop()
			if !ok {
				break
			}
			if err := e.processEvent(event, state, s, backtest, &events); err != nil {
				return err
			}
		}
		_ = bar.Add(1)
	}
	return nil
}

func (e *PredefinedAssetEngine) processEvent(event Event, state time.Time, s Strategy, backtest *Backtest, events *eventQueue) error {
	switch event.Type {
	case EventMarket:
		return e.processMarket(state, s, backtest, events)
	case EventOrder:
		e.execution.SubmitOrder(*event.Order)
	case EventFill:
		return backtest.UpdateFill(*event.Fill)
	case EventValuation:
		return backtest.MarkToMarket(state, e.valuationMethod)
	}
	return nil
}

// processMarket evaluates every trigger; fired triggers run their actions
// through the handler registry and the generated orders are recorded and
// queued behind whatever is already in flight for this step.
func (e *PredefinedAssetEngine) processMarket(state time.Time, s Strategy, backtest *Backtest, events *eventQueue) error {
	for _, trigger := range s.Triggers {
		triggerInfo := trigger.HasTriggered(state, backtest)
		if !triggerInfo.Triggered {
			continue
		}
		for _, action := range trigger.Actions() {
			handler, err := e.GetActionHandler(action)
			if err != nil {
				return err
			}
			var info any
			if triggerInfo.Info != nil {
				info = triggerInfo.Info[action.Kind()]
			}
			orders, err := handler.ApplyAction(state, backtest, info)
			if err != nil {
				return err
			}
			backtest.RecordOrders(orders)
			for _, o := range orders {
				events.push(OrderEvent(o))
			}
		}
	}
	return nil
}

func (e *PredefinedAssetEngine) progressBar(steps int) *progressbar.ProgressBar {
	if !e.showProgress {
		return progressbar.NewOptions(steps, progressbar.OptionSetWriter(io.Discard))
	}
	return progressbar.NewOptions(steps,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func timeOfDay(t time.Time) time.Duration {
	return t.Sub(calendar.Date(t))
}
