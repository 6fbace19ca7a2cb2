package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"marquee/internal/pricing"
	"marquee/types"
)

// DataSourceValuer is a valuation backend over predefined market data: it
// prices an instrument at the requested pricing date's valuation time from
// a DataHandler. It lets pricing contexts (including historical fan-outs)
// value the same assets a backtest runs on.
type DataSourceValuer struct {
	data          DataHandler
	valuationTime time.Duration
}

func NewDataSourceValuer(data DataHandler, valuationTime time.Duration) *DataSourceValuer {
	if valuationTime == 0 {
		valuationTime = defaultEODValuationTime
	}
	return &DataSourceValuer{data: data, valuationTime: valuationTime}
}

func (v *DataSourceValuer) Price(ctx context.Context, instrument types.Instrument, _ types.RiskMeasure, req pricing.ValuationRequest) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	price, err := v.data.Price(instrument.Ticker, req.PricingDate.Add(v.valuationTime))
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(instrument.Quantity), nil
}
