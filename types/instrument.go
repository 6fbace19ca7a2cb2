package types

import (
	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetTypeStock     AssetType = "STOCK"
	AssetTypeFuture    AssetType = "FUTURE"
	AssetTypeIndex     AssetType = "INDEX"
	AssetTypeCommodity AssetType = "COMMODITY"
)

type Asset struct {
	Id     int       `json:"id"`
	Ticker string    `json:"ticker"`
	Name   string    `json:"name"`
	Type   AssetType `json:"type"`
}

// Instrument is the narrow view of a priceable the core operates on: an
// asset reference plus the quantity a single trade of it carries. The full
// instrument data model (swaps, swaptions, commodity structures) lives in
// the generated DTO layer and is deliberately not part of this package.
type Instrument struct {
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
}

func NewInstrument(ticker string, quantity decimal.Decimal) Instrument {
	return Instrument{
		Ticker:   ticker,
		Quantity: quantity,
	}
}

// RiskMeasure names the measure a valuation request asks for.
type RiskMeasure string

const (
	MeasurePrice       RiskMeasure = "Price"
	MeasureDollarPrice RiskMeasure = "DollarPrice"
	MeasureIRDelta     RiskMeasure = "IRDelta"
)
