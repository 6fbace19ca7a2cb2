package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marquee/types"
)

func TestAddTradeHandler_HoldingPeriodSkipsWeekend(t *testing.T) {
	eng := NewPredefinedAssetEngine(NewDataManager())
	instrument := types.NewInstrument("CL1", decimal.NewFromInt(1))
	action := NewAddTradeAction("hold5", []types.Instrument{instrument}, 5)

	handler, err := eng.GetActionHandler(action)
	if err != nil {
		t.Fatal(err)
	}
	// Friday 2022-03-18 10:00; five trading days later is Friday 03-25
	state := day(2022, 3, 18).Add(10 * time.Hour)
	orders, err := handler.ApplyAction(state, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want open + close", len(orders))
	}
	wantClose := day(2022, 3, 25).Add(10 * time.Hour)
	if !orders[1].ExecutionTime.Equal(wantClose) {
		t.Errorf("close execution = %v, want %v", orders[1].ExecutionTime, wantClose)
	}
	if !orders[1].Quantity.Equal(orders[0].Quantity.Neg()) {
		t.Errorf("close quantity = %s, want negated %s", orders[1].Quantity, orders[0].Quantity)
	}
	if orders[0].Id == orders[1].Id {
		t.Error("orders must carry distinct ids")
	}
}

func TestAddTradeHandler_OneOrderPerPriceable(t *testing.T) {
	eng := NewPredefinedAssetEngine(NewDataManager())
	instruments := []types.Instrument{
		types.NewInstrument("CL1", decimal.NewFromInt(1)),
		types.NewInstrument("HO1", decimal.NewFromInt(3)),
	}
	action := NewAddTradeAction("basket", instruments, 0)

	handler, err := eng.GetActionHandler(action)
	if err != nil {
		t.Fatal(err)
	}
	state := day(2022, 3, 16).Add(11 * time.Hour)
	orders, err := handler.ApplyAction(state, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %d", len(orders))
	}
	for i, o := range orders {
		if o.Instrument.Ticker != instruments[i].Ticker {
			t.Errorf("orders[%d] ticker = %s", i, o.Instrument.Ticker)
		}
		if !o.GenerationTime.Equal(state) || !o.ExecutionTime.Equal(state) {
			t.Errorf("orders[%d] times = %v/%v", i, o.GenerationTime, o.ExecutionTime)
		}
	}
}

func TestGetActionHandler_UnknownKind(t *testing.T) {
	eng := NewPredefinedAssetEngine(NewDataManager())
	_, err := eng.GetActionHandler(unknownAction{})
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("err = %v, want ErrUnsupportedAction", err)
	}
}

func TestActionRegistry_Injectable(t *testing.T) {
	called := false
	registry := ActionRegistry{
		ActionKind("Teleport"): func(a Action, eng *PredefinedAssetEngine) ActionHandler {
			called = true
			return &addTradeHandler{action: NewAddTradeAction(a.Name(), nil, 0), cal: eng.cal}
		},
	}
	eng := NewPredefinedAssetEngine(NewDataManager(), WithActionRegistry(registry))
	if _, err := eng.GetActionHandler(unknownAction{}); err != nil {
		t.Fatalf("custom registry: %v", err)
	}
	if !called {
		t.Error("custom constructor was not used")
	}
	if eng.SupportsStrategy(Strategy{Triggers: []Trigger{&mockTrigger{actions: []Action{NewAddTradeAction("a", nil, 0)}}}}) {
		t.Error("replacing the registry drops the default handlers")
	}
}
