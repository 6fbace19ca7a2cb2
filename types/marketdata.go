package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one observation of an asset's price.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}
