package engine

import (
	"marquee/types"
)

type EventType string

const (
	EventMarket    EventType = "Market"
	EventOrder     EventType = "Order"
	EventFill      EventType = "Fill"
	EventValuation EventType = "Valuation"
)

// Event is the tagged variant flowing through a single timestep's queue.
// Order carries payload for EventOrder, Fill for EventFill.
type Event struct {
	Type  EventType
	Order *types.Order
	Fill  *types.Fill
}

func MarketEvent() Event {
	return Event{Type: EventMarket}
}

func OrderEvent(o types.Order) Event {
	return Event{Type: EventOrder, Order: &o}
}

func FillEvent(f types.Fill) Event {
	return Event{Type: EventFill, Fill: &f}
}

func ValuationEvent() Event {
	return Event{Type: EventValuation}
}

// eventQueue is a FIFO drained to empty within one timestep. Events pushed
// while draining are processed in the same step, after everything already
// queued.
type eventQueue struct {
	events []Event
}

func (q *eventQueue) push(events ...Event) {
	q.events = append(q.events, events...)
}

func (q *eventQueue) pop() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true
}
