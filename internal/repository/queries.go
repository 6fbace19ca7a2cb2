package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"marquee/types"
)

type dbConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgQueries runs the raw SQL against the connection pool. Decimal columns
// scan straight into shopspring values via the AfterConnect registration.
type pgQueries struct {
	conn dbConn
}

const getAssetByTicker = `
SELECT id, ticker, name, type
FROM assets
WHERE ticker = $1
`

func (q *pgQueries) GetAssetByTicker(ctx context.Context, ticker string) (types.Asset, error) {
	row := q.conn.QueryRow(ctx, getAssetByTicker, ticker)
	var a types.Asset
	if err := row.Scan(&a.Id, &a.Ticker, &a.Name, &a.Type); err != nil {
		return types.Asset{}, err
	}
	return a, nil
}

const getPriceSeries = `
SELECT time, price
FROM prices
WHERE asset_id = $1
  AND time >= $2
  AND time <= $3
ORDER BY time
`

func (q *pgQueries) GetPriceSeries(ctx context.Context, assetId int, start, end time.Time) ([]types.PricePoint, error) {
	rows, err := q.conn.Query(ctx, getPriceSeries, assetId, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []types.PricePoint
	for rows.Next() {
		var t time.Time
		var price decimal.Decimal
		if err := rows.Scan(&t, &price); err != nil {
			return nil, err
		}
		points = append(points, types.PricePoint{Time: t, Price: price})
	}
	return points, rows.Err()
}
