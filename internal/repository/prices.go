package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marquee/types"
)

// GetPriceSeries retrieves the intraday price series for a ticker over
// [start, end], ordered by time.
func (db *Database) GetPriceSeries(ctx context.Context, ticker string, start, end time.Time) ([]types.PricePoint, error) {
	asset, err := db.GetAssetByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	points, err := db.prices.GetPriceSeries(ctx, asset.Id, start, end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s: %w", ticker, ErrNoPrices)
		}
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, ErrNoPrices)
	}
	return points, nil
}
