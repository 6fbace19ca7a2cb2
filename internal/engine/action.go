package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marquee/internal/calendar"
	"marquee/types"
)

// ErrUnsupportedAction is returned when a strategy references an action
// kind no handler is registered for. SupportsStrategy probes for it without
// running anything.
var ErrUnsupportedAction = errors.New("action not supported by engine")

type ActionKind string

const (
	ActionAddTrade ActionKind = "AddTrade"
)

// Action is an abstract strategy declaration; handlers turn it into orders.
type Action interface {
	Kind() ActionKind
	Name() string
}

// ActionHandler converts a fired action into concrete orders. info is the
// trigger-supplied side channel for this action kind, nil when the trigger
// attached none.
type ActionHandler interface {
	ApplyAction(state time.Time, backtest *Backtest, info any) ([]types.Order, error)
}

// HandlerConstructor builds a handler for one action instance.
type HandlerConstructor func(action Action, eng *PredefinedAssetEngine) ActionHandler

// ActionRegistry maps action kinds to handler constructors. It is
// injectable so embedding applications can extend the engine without
// modifying it.
type ActionRegistry map[ActionKind]HandlerConstructor

// DefaultActionRegistry covers the actions this engine ships handlers for.
func DefaultActionRegistry() ActionRegistry {
	return ActionRegistry{
		ActionAddTrade: newAddTradeHandler,
	}
}

// AddTradeAction asks for a market trade in each priceable at the firing
// time. A non-zero holding period additionally books the closing trade that
// many trading days later.
type AddTradeAction struct {
	name        string
	priceables  []types.Instrument
	holdingDays int
}

func NewAddTradeAction(name string, priceables []types.Instrument, holdingDays int) *AddTradeAction {
	return &AddTradeAction{
		name:        name,
		priceables:  priceables,
		holdingDays: holdingDays,
	}
}

func (a *AddTradeAction) Kind() ActionKind {
	return ActionAddTrade
}

func (a *AddTradeAction) Name() string {
	return a.name
}

func (a *AddTradeAction) Priceables() []types.Instrument {
	return a.priceables
}

type addTradeHandler struct {
	action *AddTradeAction
	cal    calendar.Calendar
}

func newAddTradeHandler(action Action, eng *PredefinedAssetEngine) ActionHandler {
	return &addTradeHandler{
		action: action.(*AddTradeAction),
		cal:    eng.cal,
	}
}

func (h *addTradeHandler) generateOrders(state time.Time) []types.Order {
	var orders []types.Order
	for _, priceable := range h.action.priceables {
		orders = append(orders, types.NewOrderAtMarket(
			uuid.NewString(), priceable, priceable.Quantity, state, state, h.action.name))
		if h.action.holdingDays > 0 {
			// closing order: same clock time, holding period later in
			// trading days
			closeDay := calendar.BusinessDayOffset(state, h.action.holdingDays, h.cal)
			closeTime := closeDay.Add(state.Sub(calendar.Date(state)))
			orders = append(orders, types.NewOrderAtMarket(
				uuid.NewString(), priceable, priceable.Quantity.Neg(), state, closeTime, h.action.name))
		}
	}
	return orders
}

func (h *addTradeHandler) ApplyAction(state time.Time, _ *Backtest, _ any) ([]types.Order, error) {
	return h.generateOrders(state), nil
}

// GetActionHandler resolves the handler for an action; an unregistered
// action kind is a capability error naming the kind.
func (e *PredefinedAssetEngine) GetActionHandler(action Action) (ActionHandler, error) {
	ctor, ok := e.actions[action.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Kind())
	}
	return ctor(action, e), nil
}

// SupportsStrategy reports whether every action the strategy's triggers
// reference has a registered handler.
func (e *PredefinedAssetEngine) SupportsStrategy(s Strategy) bool {
	for _, trigger := range s.Triggers {
		for _, action := range trigger.Actions() {
			if _, err := e.GetActionHandler(action); err != nil {
				return false
			}
		}
	}
	return true
}
