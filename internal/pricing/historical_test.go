package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marquee/types"
)

func TestHistorical_RangeXorDates(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HistoricalConfig
		wantErr bool
	}{
		{"range only", HistoricalConfig{Start: date(2022, 3, 14), End: date(2022, 3, 16)}, false},
		{"dates only", HistoricalConfig{Dates: []time.Time{date(2022, 3, 14)}}, false},
		{"both", HistoricalConfig{Start: date(2022, 3, 14), Dates: []time.Time{date(2022, 3, 15)}}, true},
		{"neither", HistoricalConfig{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewHistoricalPricingContext(tc.cfg)
			if tc.wantErr && !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("err = %v, want ErrInvalidConfiguration", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestHistorical_RangeSkipsWeekends(t *testing.T) {
	resetAmbient()
	// Fri 2022-03-18 .. Tue 2022-03-22
	hpc, err := NewHistoricalPricingContext(HistoricalConfig{Start: date(2022, 3, 18), End: date(2022, 3, 22)})
	if err != nil {
		t.Fatal(err)
	}
	dates := hpc.Dates()
	want := []time.Time{date(2022, 3, 18), date(2022, 3, 21), date(2022, 3, 22)}
	if len(dates) != len(want) {
		t.Fatalf("dates = %v", dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestHistorical_CalcRoundTrip(t *testing.T) {
	resetAmbient()
	valuer := &mockValuer{
		price: func(_ context.Context, req ValuationRequest) (decimal.Decimal, error) {
			// deterministic per-date value so we can check correspondence
			return decimal.NewFromInt(int64(req.PricingDate.Day())), nil
		},
	}
	in := []time.Time{date(2022, 3, 14), date(2022, 3, 15), date(2022, 3, 16)}
	hpc, err := NewHistoricalPricingContext(HistoricalConfig{Dates: in}, WithValuer(valuer))
	if err != nil {
		t.Fatal(err)
	}

	fut, err := hpc.Calc(types.NewInstrument("CL1", decimal.NewFromInt(1)), types.MeasurePrice)
	if err != nil {
		t.Fatal(err)
	}
	values, err := fut.Result()
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != len(in) {
		t.Fatalf("values = %d, want one per date", len(values))
	}
	for i, dv := range values {
		if !dv.Date.Equal(in[i]) {
			t.Errorf("values[%d].Date = %v, want %v (input order preserved)", i, dv.Date, in[i])
		}
		if !dv.Value.Equal(decimal.NewFromInt(int64(in[i].Day()))) {
			t.Errorf("values[%d] = %s for %v", i, dv.Value, dv.Date)
		}
	}

	byDate, err := fut.ResultMap()
	if err != nil {
		t.Fatal(err)
	}
	if len(byDate) != len(in) {
		t.Fatalf("map keys = %d", len(byDate))
	}
	for _, d := range in {
		if _, ok := byDate[d]; !ok {
			t.Errorf("missing key %v", d)
		}
	}

	// every sub-request carried the per-date close market
	for _, req := range valuer.seen() {
		if !req.Market.Date.Equal(req.PricingDate) && req.Market.Date.After(req.PricingDate) {
			t.Errorf("market date %v after pricing date %v", req.Market.Date, req.PricingDate)
		}
	}
	if Depth() != 0 {
		t.Errorf("stack depth = %d after historical calc", Depth())
	}
}

func TestHistorical_InheritsLocationFromEnclosingFrame(t *testing.T) {
	resetAmbient()
	valuer := &mockValuer{}
	outer := mustContext(t, WithMarketDataLocation(types.LocationNYC), WithValuer(valuer))

	err := outer.Do(func() error {
		hpc, err := NewHistoricalPricingContext(HistoricalConfig{Dates: []time.Time{date(2022, 3, 14), date(2022, 3, 15)}})
		if err != nil {
			return err
		}
		fut, err := hpc.Calc(types.NewInstrument("CL1", decimal.NewFromInt(1)), types.MeasurePrice)
		if err != nil {
			return err
		}
		_, err = fut.Result()
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	reqs := valuer.seen()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d", len(reqs))
	}
	for _, req := range reqs {
		if req.Location != types.LocationNYC {
			t.Errorf("request location = %s, want NYC inherited from outer frame", req.Location)
		}
	}
}

func TestHistorical_BackendFailureFailsAggregate(t *testing.T) {
	resetAmbient()
	backendErr := errors.New("remote pricing failed")
	valuer := &mockValuer{
		price: func(_ context.Context, req ValuationRequest) (decimal.Decimal, error) {
			if req.PricingDate.Equal(date(2022, 3, 15)) {
				return decimal.Zero, backendErr
			}
			return decimal.NewFromInt(1), nil
		},
	}
	hpc, err := NewHistoricalPricingContext(
		HistoricalConfig{Dates: []time.Time{date(2022, 3, 14), date(2022, 3, 15), date(2022, 3, 16)}},
		WithValuer(valuer),
	)
	if err != nil {
		t.Fatal(err)
	}
	fut, err := hpc.Calc(types.NewInstrument("CL1", decimal.NewFromInt(1)), types.MeasurePrice)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fut.Result(); !errors.Is(err, backendErr) {
		t.Errorf("aggregate err = %v, want backend failure", err)
	}
}
