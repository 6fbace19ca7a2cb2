package engine

import (
	"time"
)

// TriggerInfo is a trigger's verdict for one timestamp, plus auxiliary data
// keyed by action kind that handlers may consult for sizing or timing.
type TriggerInfo struct {
	Triggered bool
	Info      map[ActionKind]any
}

// Trigger is a strategy-declared condition, evaluated at the times of day
// it asks for, producing zero or more actions when it fires.
type Trigger interface {
	HasTriggered(state time.Time, backtest *Backtest) TriggerInfo
	Actions() []Action
	// TriggerTimes returns the times of day (offsets from midnight) the
	// trigger wants to be evaluated at.
	TriggerTimes() []time.Duration
}

// Strategy is the engine's view of a trading strategy: a set of triggers.
type Strategy struct {
	Triggers []Trigger
}
