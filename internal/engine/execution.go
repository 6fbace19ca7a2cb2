package engine

import (
	"time"

	"marquee/types"
)

// ExecutionEngine decides when and at what price submitted orders fill.
type ExecutionEngine interface {
	SubmitOrder(order types.Order)
	// Ping returns the fills complete as of state. Fills are never reported
	// earlier than the order's submission.
	Ping(state time.Time) ([]types.Fill, error)
}

// SimulatedExecutionEngine fills market orders at the data handler's price
// for their intended execution time, on the first ping at or after it.
type SimulatedExecutionEngine struct {
	data    DataHandler
	pending []types.Order
}

func NewSimulatedExecutionEngine(data DataHandler) *SimulatedExecutionEngine {
	return &SimulatedExecutionEngine{data: data}
}

func (x *SimulatedExecutionEngine) SubmitOrder(order types.Order) {
	x.pending = append(x.pending, order)
}

func (x *SimulatedExecutionEngine) Ping(state time.Time) ([]types.Fill, error) {
	var fills []types.Fill
	remaining := x.pending[:0]
	for _, order := range x.pending {
		if order.ExecutionTime.After(state) {
			remaining = append(remaining, order)
			continue
		}
		price, err := x.data.Price(order.Instrument.Ticker, order.ExecutionTime)
		if err != nil {
			return nil, err
		}
		fills = append(fills, types.NewFill(order.Id, order.Instrument.Ticker, order.ExecutionTime, price, order.Quantity))
	}
	x.pending = remaining
	return fills, nil
}
