package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"marquee/internal/calendar"
	"marquee/types"
)

// DatedLevel is one mark-to-market observation of the portfolio.
type DatedLevel struct {
	Date  time.Time       `json:"date"`
	Level decimal.Decimal `json:"level"`
}

// Backtest accumulates the state of one run: orders, fills, positions and
// the daily mark-to-market series. It is mutated only by the engine's event
// loop and returned as the run's result.
type Backtest struct {
	data        DataHandler
	startDate   time.Time
	initialCash decimal.Decimal

	cash       decimal.Decimal
	positions  map[string]decimal.Decimal
	orders     []types.Order
	orderIndex map[string]int
	fills      []types.Fill

	performance []DatedLevel
}

func newBacktest(data DataHandler, initialCash decimal.Decimal) *Backtest {
	return &Backtest{
		data:        data,
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]decimal.Decimal),
		orderIndex:  make(map[string]int),
	}
}

func (b *Backtest) SetStartDate(d time.Time) {
	b.startDate = calendar.Date(d)
}

func (b *Backtest) StartDate() time.Time {
	return b.startDate
}

// RecordOrders appends newly generated orders to the history.
func (b *Backtest) RecordOrders(orders []types.Order) {
	for _, o := range orders {
		b.orderIndex[o.Id] = len(b.orders)
		b.orders = append(b.orders, o)
	}
}

// UpdateFill applies a fill: flips the order's status, moves cash and
// updates the position.
func (b *Backtest) UpdateFill(fill types.Fill) error {
	idx, ok := b.orderIndex[fill.OrderId]
	if !ok {
		return fmt.Errorf("fill for unknown order %s", fill.OrderId)
	}
	b.orders[idx].Status = types.OrderFilled
	b.cash = b.cash.Sub(fill.Price.Mul(fill.Qty))
	b.positions[fill.Ticker] = b.positions[fill.Ticker].Add(fill.Qty)
	b.fills = append(b.fills, fill)
	return nil
}

// MarkToMarket values cash plus positions with the data handler and records
// the level for state's date. A valuation method with an explicit window
// prices at the window's end on that date; otherwise positions are priced
// at state itself.
func (b *Backtest) MarkToMarket(state time.Time, method types.ValuationMethod) error {
	at := state
	if !method.Window.IsZero() {
		at = calendar.Date(state).Add(method.Window.End)
	}
	level := b.cash
	for ticker, qty := range b.positions {
		if qty.IsZero() {
			continue
		}
		price, err := b.data.Price(ticker, at)
		if err != nil {
			return fmt.Errorf("mark to market %s: %w", at.Format(time.RFC3339), err)
		}
		level = level.Add(price.Mul(qty))
	}
	b.performance = append(b.performance, DatedLevel{Date: calendar.Date(state), Level: level})
	return nil
}

func (b *Backtest) Performance() []DatedLevel {
	out := make([]DatedLevel, len(b.performance))
	copy(out, b.performance)
	return out
}

func (b *Backtest) Orders() []types.Order {
	out := make([]types.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

func (b *Backtest) Fills() []types.Fill {
	out := make([]types.Fill, len(b.fills))
	copy(out, b.fills)
	return out
}

func (b *Backtest) Cash() decimal.Decimal {
	return b.cash
}

func (b *Backtest) Position(ticker string) decimal.Decimal {
	return b.positions[ticker]
}
