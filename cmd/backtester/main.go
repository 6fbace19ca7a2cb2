package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"marquee/internal/config"
	"marquee/internal/engine"
	"marquee/internal/pricing"
	"marquee/internal/repository"
	"marquee/strategies/intraday"
	"marquee/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML run configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	db, err := repository.NewDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	start, _ := cfg.Run.StartDate()
	end, _ := cfg.Run.EndDate()

	dm := engine.NewDataManager()
	for _, ticker := range cfg.Run.Tickers {
		asset, err := db.GetAssetByTicker(ctx, ticker)
		if err != nil {
			log.Fatal(err)
		}
		points, err := db.GetPriceSeries(ctx, asset.Ticker, start, end.AddDate(0, 0, 1))
		if err != nil {
			log.Fatal(err)
		}
		dm.AddSeries(asset.Ticker, points)
	}

	quantity, _ := cfg.Run.TradeQuantity()
	times, _ := cfg.Run.Times()
	strategy := intraday.NewScheduledBuys(cfg.Run.Tickers, quantity, cfg.Run.HoldingDays, times)

	opts := []engine.EngineOption{
		engine.WithProgress(cfg.Run.ShowProgress),
	}
	if cfg.Run.Location != "" {
		opts = append(opts, engine.WithLocation(types.PricingLocation(cfg.Run.Location)))
	}
	if cash, _ := cfg.Run.Cash(); !cash.IsZero() {
		opts = append(opts, engine.WithInitialCash(cash))
	}
	valuationTime := time.Duration(0)
	if cfg.Run.ValuationTime != "" {
		valuationTime, _ = config.ParseTimeOfDay(cfg.Run.ValuationTime)
		opts = append(opts, engine.WithValuationMethod(types.ValuationMethod{
			Window: types.TimeWindow{End: valuationTime},
		}))
	}

	eng := engine.NewPredefinedAssetEngine(dm, opts...)
	if !eng.SupportsStrategy(strategy) {
		log.Fatal("engine does not support the configured strategy")
	}

	backtest, err := eng.RunBacktest(strategy, start, end)
	if err != nil {
		log.Fatal(err)
	}

	summary := backtest.Summary()
	fmt.Printf("backtest finished: %d days, %d orders, %d fills, final level %s\n",
		summary.Days, summary.TotalOrders, summary.TotalFills, summary.FinalLevel)

	if cfg.Report.SummaryPath != "" {
		if err := engine.WriteSummaryJSONFile(cfg.Report.SummaryPath, summary); err != nil {
			log.Fatal(err)
		}
	}
	if cfg.Report.OrdersPath != "" {
		if err := backtest.WriteOrdersCSVFile(cfg.Report.OrdersPath); err != nil {
			log.Fatal(err)
		}
	}
	if cfg.Report.PerformancePath != "" {
		f, err := os.Create(cfg.Report.PerformancePath)
		if err != nil {
			log.Fatal(err)
		}
		if err := backtest.WritePerformanceCSV(f); err != nil {
			f.Close()
			log.Fatal(err)
		}
		f.Close()
	}

	if err := printHistoricalLevels(cfg, dm, valuationTime, quantity, start, end); err != nil {
		log.Fatal(err)
	}
}

// printHistoricalLevels reprices the configured tickers over the run's date
// range through a historical pricing context, using the same market data the
// backtest ran on as the valuation backend.
func printHistoricalLevels(cfg *config.Config, dm *engine.DataManager, valuationTime time.Duration, quantity decimal.Decimal, start, end time.Time) error {
	dm.Update(end.AddDate(0, 0, 1))

	opts := []pricing.Option{
		pricing.WithValuer(engine.NewDataSourceValuer(dm, valuationTime)),
	}
	if cfg.Run.Location != "" {
		opts = append(opts, pricing.WithMarketDataLocation(types.PricingLocation(cfg.Run.Location)))
	}
	hpc, err := pricing.NewHistoricalPricingContext(pricing.HistoricalConfig{Start: start, End: end}, opts...)
	if err != nil {
		return err
	}

	for _, ticker := range cfg.Run.Tickers {
		future, err := hpc.Calc(types.NewInstrument(ticker, quantity), types.MeasurePrice)
		if err != nil {
			return err
		}
		values, err := future.Result()
		if err != nil {
			return err
		}
		fmt.Printf("%s close levels:\n", ticker)
		for _, dv := range values {
			fmt.Printf("  %s  %s\n", dv.Date.Format("2006-01-02"), dv.Value)
		}
	}
	return nil
}
