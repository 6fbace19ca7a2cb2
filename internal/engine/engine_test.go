package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marquee/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(d time.Time, hours int) time.Time {
	return d.Add(time.Duration(hours) * time.Hour)
}

// testData builds a data manager with one 09:00 price point per business
// day, increasing by 10 per day.
func testData(ticker string, days ...time.Time) *DataManager {
	dm := NewDataManager()
	points := make([]types.PricePoint, 0, len(days))
	for i, d := range days {
		points = append(points, types.PricePoint{
			Time:  at(d, 9),
			Price: decimal.NewFromInt(int64(100 + 10*i)),
		})
	}
	dm.AddSeries(ticker, points)
	return dm
}

type mockTrigger struct {
	fireAt  time.Time
	times   []time.Duration
	actions []Action
	info    map[ActionKind]any
	fired   int
}

func (m *mockTrigger) HasTriggered(state time.Time, _ *Backtest) TriggerInfo {
	if !state.Equal(m.fireAt) {
		return TriggerInfo{}
	}
	m.fired++
	return TriggerInfo{Triggered: true, Info: m.info}
}

func (m *mockTrigger) Actions() []Action {
	return m.actions
}

func (m *mockTrigger) TriggerTimes() []time.Duration {
	return m.times
}

type unknownAction struct{}

func (unknownAction) Kind() ActionKind { return ActionKind("Teleport") }
func (unknownAction) Name() string     { return "teleport" }

var (
	d14 = day(2022, 3, 14)
	d15 = day(2022, 3, 15)
	d16 = day(2022, 3, 16)
)

func TestTimer_DatesCrossTimesSortedDeduped(t *testing.T) {
	eng := NewPredefinedAssetEngine(NewDataManager())
	trig := &mockTrigger{times: []time.Duration{10 * time.Hour, 10 * time.Hour, 9 * time.Hour}}
	s := Strategy{Triggers: []Trigger{trig}}

	// Fri .. Mon straddles a weekend
	timer := eng.timer(s, day(2022, 3, 18), day(2022, 3, 21))
	want := []time.Time{
		at(day(2022, 3, 18), 9), at(day(2022, 3, 18), 10), at(day(2022, 3, 18), 23),
		at(day(2022, 3, 21), 9), at(day(2022, 3, 21), 10), at(day(2022, 3, 21), 23),
	}
	if len(timer) != len(want) {
		t.Fatalf("timer = %v", timer)
	}
	for i := range want {
		if !timer[i].Equal(want[i]) {
			t.Errorf("timer[%d] = %v, want %v", i, timer[i], want[i])
		}
	}
	for i := 1; i < len(timer); i++ {
		if !timer[i].After(timer[i-1]) {
			t.Errorf("timer not strictly increasing at %d: %v, %v", i, timer[i-1], timer[i])
		}
	}
}

func TestRunBacktest_OneValuationPerDay(t *testing.T) {
	dm := testData("CL1", d14, d15, d16)
	eng := NewPredefinedAssetEngine(dm)
	bt, err := eng.RunBacktest(Strategy{}, d14, d16)
	if err != nil {
		t.Fatal(err)
	}
	perf := bt.Performance()
	if len(perf) != 3 {
		t.Fatalf("performance entries = %d, want one per business day", len(perf))
	}
	for i, d := range []time.Time{d14, d15, d16} {
		if !perf[i].Date.Equal(d) {
			t.Errorf("perf[%d].Date = %v, want %v", i, perf[i].Date, d)
		}
		if !perf[i].Level.Equal(decimal.NewFromInt(100)) {
			t.Errorf("perf[%d].Level = %s, want untouched initial cash", i, perf[i].Level)
		}
	}
}

func TestRunBacktest_AddTradeNoDuration(t *testing.T) {
	dm := testData("CL1", d14, d15, d16)
	instrument := types.NewInstrument("CL1", decimal.NewFromInt(1))
	action := NewAddTradeAction("buy-cl1", []types.Instrument{instrument}, 0)
	fireAt := at(d15, 10)
	trig := &mockTrigger{fireAt: fireAt, times: []time.Duration{10 * time.Hour}, actions: []Action{action}}

	eng := NewPredefinedAssetEngine(dm)
	bt, err := eng.RunBacktest(Strategy{Triggers: []Trigger{trig}}, d14, d16)
	if err != nil {
		t.Fatal(err)
	}

	orders := bt.Orders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want exactly one", len(orders))
	}
	o := orders[0]
	if !o.GenerationTime.Equal(fireAt) || !o.ExecutionTime.Equal(fireAt) {
		t.Errorf("generation %v / execution %v, want both %v", o.GenerationTime, o.ExecutionTime, fireAt)
	}
	if o.Source != "buy-cl1" {
		t.Errorf("source = %s", o.Source)
	}
	if o.Status != types.OrderFilled {
		t.Errorf("status = %s, want filled by the next ping", o.Status)
	}

	fills := bt.Fills()
	if len(fills) != 1 {
		t.Fatalf("fills = %d", len(fills))
	}
	// priced off the execution time, not the ping time
	if !fills[0].Price.Equal(decimal.NewFromInt(110)) {
		t.Errorf("fill price = %s, want 110 (day-2 level)", fills[0].Price)
	}
	if !bt.Position("CL1").Equal(decimal.NewFromInt(1)) {
		t.Errorf("position = %s", bt.Position("CL1"))
	}

	// day1: 100 cash; day2: -10 cash + 110 position; day3: -10 + 120
	perf := bt.Performance()
	wantLevels := []int64{100, 100, 110}
	if len(perf) != len(wantLevels) {
		t.Fatalf("performance = %v", perf)
	}
	for i, lvl := range wantLevels {
		if !perf[i].Level.Equal(decimal.NewFromInt(lvl)) {
			t.Errorf("perf[%d] = %s, want %d", i, perf[i].Level, lvl)
		}
	}
}

func TestRunBacktest_AddTradeWithHoldingPeriod(t *testing.T) {
	dm := testData("CL1", d14, d15, d16)
	instrument := types.NewInstrument("CL1", decimal.NewFromInt(2))
	action := NewAddTradeAction("roll-cl1", []types.Instrument{instrument}, 1)
	fireAt := at(d14, 10)
	trig := &mockTrigger{fireAt: fireAt, times: []time.Duration{10 * time.Hour}, actions: []Action{action}}

	eng := NewPredefinedAssetEngine(dm)
	bt, err := eng.RunBacktest(Strategy{Triggers: []Trigger{trig}}, d14, d16)
	if err != nil {
		t.Fatal(err)
	}

	orders := bt.Orders()
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want the opening and closing pair", len(orders))
	}
	open, closing := orders[0], orders[1]
	if !open.Quantity.Equal(decimal.NewFromInt(2)) || !closing.Quantity.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("quantities = %s, %s", open.Quantity, closing.Quantity)
	}
	if !closing.GenerationTime.Equal(fireAt) {
		t.Errorf("closing generation time = %v", closing.GenerationTime)
	}
	if !closing.ExecutionTime.Equal(at(d15, 10)) {
		t.Errorf("closing execution time = %v, want one trading day later", closing.ExecutionTime)
	}

	if !bt.Position("CL1").IsZero() {
		t.Errorf("position = %s, want flat after the close", bt.Position("CL1"))
	}
	// bought 2@100, sold 2@110
	if !bt.Cash().Equal(decimal.NewFromInt(120)) {
		t.Errorf("cash = %s, want 120", bt.Cash())
	}
}

func TestRunBacktest_FillNeverPrecedesSubmissionStep(t *testing.T) {
	dm := testData("CL1", d14, d15, d16)
	instrument := types.NewInstrument("CL1", decimal.NewFromInt(1))
	action := NewAddTradeAction("buy", []types.Instrument{instrument}, 0)
	fireAt := at(d15, 10)
	trig := &mockTrigger{fireAt: fireAt, times: []time.Duration{10 * time.Hour}, actions: []Action{action}}

	eng := NewPredefinedAssetEngine(dm)
	bt, err := eng.RunBacktest(Strategy{Triggers: []Trigger{trig}}, d14, d16)
	if err != nil {
		t.Fatal(err)
	}
	fills := bt.Fills()
	if len(fills) != 1 {
		t.Fatalf("fills = %d", len(fills))
	}
	// The fill surfaces on the ping after submission; its time is the
	// order's execution time, never before the firing step.
	if fills[0].Time.Before(fireAt) {
		t.Errorf("fill time %v precedes submission %v", fills[0].Time, fireAt)
	}
}

func TestSupportsStrategy(t *testing.T) {
	eng := NewPredefinedAssetEngine(NewDataManager())
	add := NewAddTradeAction("a", nil, 0)

	supported := Strategy{Triggers: []Trigger{&mockTrigger{actions: []Action{add}}}}
	if !eng.SupportsStrategy(supported) {
		t.Error("strategy with registered actions should be supported")
	}

	mixed := Strategy{Triggers: []Trigger{
		&mockTrigger{actions: []Action{add}},
		&mockTrigger{actions: []Action{unknownAction{}}},
	}}
	if eng.SupportsStrategy(mixed) {
		t.Error("one unregistered action kind must flip support to false")
	}
}

func TestRunBacktest_UnsupportedActionFailsFast(t *testing.T) {
	dm := testData("CL1", d14)
	trig := &mockTrigger{fireAt: at(d14, 10), times: []time.Duration{10 * time.Hour}, actions: []Action{unknownAction{}}}
	eng := NewPredefinedAssetEngine(dm)

	_, err := eng.RunBacktest(Strategy{Triggers: []Trigger{trig}}, d14, d14)
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("err = %v, want ErrUnsupportedAction", err)
	}
}

func TestEventQueue_FIFOWithReenqueue(t *testing.T) {
	var q eventQueue
	q.push(MarketEvent(), ValuationEvent())

	ev, ok := q.pop()
	if !ok || ev.Type != EventMarket {
		t.Fatalf("first pop = %v", ev.Type)
	}
	// re-enqueue while draining goes behind the existing events
	q.push(OrderEvent(types.Order{Id: "x"}))

	ev, _ = q.pop()
	if ev.Type != EventValuation {
		t.Errorf("second pop = %v, want the earlier valuation event", ev.Type)
	}
	ev, _ = q.pop()
	if ev.Type != EventOrder || ev.Order.Id != "x" {
		t.Errorf("third pop = %v", ev.Type)
	}
	if _, ok := q.pop(); ok {
		t.Error("queue should be drained")
	}
}
