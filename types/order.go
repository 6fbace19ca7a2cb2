package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

type OrderStatus string

const (
	TypeMarket OrderType = "MARKET"

	OrderSubmitted OrderStatus = "ORDER_SUBMITTED"
	OrderFilled    OrderStatus = "ORDER_FILLED"
)

// Order is generated by an action handler in response to a trigger firing
// and consumed by the execution engine. An order that never reaches its
// execution time before the simulation ends simply stays ORDER_SUBMITTED.
type Order struct {
	Id             string
	Instrument     Instrument
	Quantity       decimal.Decimal // signed; negative closes or shorts
	OrderType      OrderType
	GenerationTime time.Time
	ExecutionTime  time.Time
	Source         string // name of the action that generated the order
	Status         OrderStatus
}

func NewOrderAtMarket(id string, instrument Instrument, quantity decimal.Decimal, generationTime, executionTime time.Time, source string) Order {
	return Order{
		Id:             id,
		Instrument:     instrument,
		Quantity:       quantity,
		OrderType:      TypeMarket,
		GenerationTime: generationTime,
		ExecutionTime:  executionTime,
		Source:         source,
		Status:         OrderSubmitted,
	}
}

type Fill struct {
	OrderId string
	Ticker  string
	Time    time.Time
	Price   decimal.Decimal
	Qty     decimal.Decimal
}

func NewFill(orderId, ticker string, t time.Time, price, qty decimal.Decimal) Fill {
	return Fill{
		OrderId: orderId,
		Ticker:  ticker,
		Time:    t,
		Price:   price,
		Qty:     qty,
	}
}
