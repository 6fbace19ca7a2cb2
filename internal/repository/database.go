package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marquee/types"
)

// Global error declarations.
var (
	ErrAssetNotFound = errors.New("not found in datasource")
	ErrNoPrices      = errors.New("no prices found in datasource")
)

const maxPingInterval = 10 * time.Second

type assetSource interface {
	GetAssetByTicker(ctx context.Context, ticker string) (types.Asset, error)
}
type priceSource interface {
	GetPriceSeries(ctx context.Context, assetId int, start, end time.Time) ([]types.PricePoint, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	assets assetSource
	prices priceSource
	conn   *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return Database{}, err
	}
	// Ensure the connection is established, retrying transient faults.
	if err := pingWithBackoff(ctx, conn); err != nil {
		conn.Close()
		return Database{}, fmt.Errorf("ping: %w", err)
	}

	queries := &pgQueries{conn: conn}
	return Database{
		assets: queries,
		prices: queries,
		conn:   conn}, nil
}

func pingWithBackoff(ctx context.Context, conn *pgxpool.Pool) error {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = maxPingInterval

	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = conn.Ping(ctx); err == nil {
			return nil
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = maxPingInterval
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return err
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
