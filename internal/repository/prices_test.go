package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"marquee/types"
)

var startTime = time.Date(2022, 3, 14, 9, 0, 0, 0, time.UTC)
var endTime = startTime.Add(4 * time.Hour)

type mockPriceSource struct {
	sqlError error
	empty    bool
}

func TestDatabase_GetPriceSeries(t *testing.T) {
	type args struct {
		ticker string
		start  time.Time
		end    time.Time
	}
	tests := []struct {
		name     string
		args     args
		assetErr error
		sqlErr   error
		empty    bool
		wantErr  error
	}{
		{"should throw ErrAssetNotFound for unknown ticker", args{"ZZZ", startTime, endTime}, pgx.ErrNoRows, nil, false, ErrAssetNotFound},
		{"should throw ErrNoPrices on no rows error", args{"CL1", startTime, endTime}, nil, pgx.ErrNoRows, false, ErrNoPrices},
		{"should throw ErrNoPrices on empty series", args{"CL1", startTime, endTime}, nil, nil, true, ErrNoPrices},
		{"should return hourly points", args{"CL1", startTime, endTime}, nil, nil, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				assets: mockAssetSource{sqlError: tt.assetErr},
				prices: mockPriceSource{sqlError: tt.sqlErr, empty: tt.empty},
			}
			got, err := db.GetPriceSeries(context.Background(), tt.args.ticker, tt.args.start, tt.args.end)
			if err != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetPriceSeries() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			want := mockPoints(tt.args.start, tt.args.end)
			if len(got) != len(want) {
				t.Fatalf("GetPriceSeries() points = %d, want %d", len(got), len(want))
			}
			for i := range want {
				if !got[i].Time.Equal(want[i].Time) {
					t.Errorf("GetPriceSeries() %d time got = %v, want %v", i, got[i].Time, want[i].Time)
					break
				}
				if !got[i].Price.Equal(want[i].Price) {
					t.Errorf("GetPriceSeries() %d price got = %v, want %v", i, got[i].Price, want[i].Price)
					break
				}
			}
		})
	}
}

func (m mockPriceSource) GetPriceSeries(_ context.Context, _ int, start, end time.Time) ([]types.PricePoint, error) {
	if m.sqlError != nil {
		return nil, m.sqlError
	}
	if m.empty {
		return nil, nil
	}
	return mockPoints(start, end), nil
}

func mockPoints(start, end time.Time) []types.PricePoint {
	var points []types.PricePoint
	for i := start; !i.After(end); i = i.Add(time.Hour) {
		points = append(points, types.PricePoint{
			Time:  i,
			Price: decimal.NewFromInt(i.Unix() / 3600),
		})
	}
	return points
}
