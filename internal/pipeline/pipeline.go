// Package pipeline turns daily shop transactions into next-month forecasts:
// clean, aggregate per month, filter short histories, fit every shop and join
// the forecasts with shop metadata.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/drstein77/salesforecast/internal/forecast"
	"github.com/drstein77/salesforecast/internal/models"
)

type Log interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// Metrics receives run counters and per-shop fit timings.
type Metrics interface {
	ObserveFit(d time.Duration, err error)
	ObserveSummary(s models.Summary)
}

type Config struct {
	Thresholds Thresholds
	MinMonths  int
	Workers    int
}

func DefaultConfig() Config {
	return Config{
		Thresholds: DefaultThresholds(),
		MinMonths:  3,
		Workers:    1,
	}
}

// Outcome is everything a run produced.
type Outcome struct {
	Monthly   []models.MonthlyPoint  // monthly history of the shops that were fit
	Forecasts []models.ForecastPoint // fitted and forecast points of every fit shop
	Results   []models.Result        // next-month forecasts joined with shop names
	Summary   models.Summary
}

type Pipeline struct {
	cfg        Config
	forecaster forecast.Forecaster
	log        Log
	metrics    Metrics
}

// New returns a pipeline using f for every shop. metrics may be nil.
func New(cfg Config, f forecast.Forecaster, log Log, metrics Metrics) (*Pipeline, error) {
	if f == nil {
		return nil, fmt.Errorf("pipeline: nil forecaster")
	}
	if cfg.MinMonths < 2 {
		return nil, fmt.Errorf("pipeline: min months %d below 2", cfg.MinMonths)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{cfg: cfg, forecaster: f, log: log, metrics: metrics}, nil
}

// Run executes every stage over txs. Per-shop problems end up in the summary;
// an error is returned only when ctx is done.
func (p *Pipeline) Run(ctx context.Context, txs []models.Transaction, shops []models.Shop) (*Outcome, error) {
	var sum models.Summary
	sum.TransactionsLoaded = len(txs)

	cleaned, rejected := Clean(txs, p.cfg.Thresholds)
	sum.TransactionsRejected = rejected
	p.log.Info("transactions cleaned",
		zap.Int("loaded", len(txs)),
		zap.Int("rejected", rejected),
	)

	monthly := Aggregate(cleaned)
	sum.ShopsSeen = len(LastObserved(monthly))
	for _, pt := range monthly {
		if pt.Month.After(sum.TargetMonth) {
			sum.TargetMonth = pt.Month
		}
	}
	if !sum.TargetMonth.IsZero() {
		sum.TargetMonth = models.AddMonths(sum.TargetMonth, Horizon)
	}
	p.log.Debug("monthly totals aggregated",
		zap.Int("points", len(monthly)),
		zap.Int("shops", sum.ShopsSeen),
	)

	kept, excluded := FilterShops(monthly, p.cfg.MinMonths)
	sum.Excluded = excluded
	for _, ex := range excluded {
		p.log.Debug("shop excluded", zap.Int("shop_id", ex.ShopID), zap.Int("months", ex.Months))
	}

	forecasts, failed, err := ForecastShops(ctx, kept, p.timed(), p.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("forecast shops: %w", err)
	}
	sum.Failed = failed
	for _, f := range failed {
		p.log.Warn("shop forecast failed", zap.Int("shop_id", f.ShopID), zap.String("reason", f.Reason))
	}

	results, unknown := Assemble(forecasts, LastObserved(kept), shops)
	sum.UnknownShops = unknown
	sum.ShopsForecast = len(results)
	for _, r := range results {
		if !r.Date.Equal(sum.TargetMonth) {
			sum.OffTarget = append(sum.OffTarget, r.ShopID)
		}
	}
	if len(unknown) > 0 {
		p.log.Warn("forecast shops missing from shop metadata", zap.Ints("shop_ids", unknown))
	}

	excludedIDs := make([]int, len(sum.Excluded))
	for i, ex := range sum.Excluded {
		excludedIDs[i] = ex.ShopID
	}
	failedIDs := make([]int, len(sum.Failed))
	for i, f := range sum.Failed {
		failedIDs[i] = f.ShopID
	}
	p.log.Info("forecast run finished",
		zap.Int("forecast", sum.ShopsForecast),
		zap.Int("excluded", len(sum.Excluded)),
		zap.Ints("excluded_shop_ids", excludedIDs),
		zap.Int("failed", len(sum.Failed)),
		zap.Ints("failed_shop_ids", failedIDs),
		zap.Time("target_month", sum.TargetMonth),
	)
	if p.metrics != nil {
		p.metrics.ObserveSummary(sum)
	}

	return &Outcome{
		Monthly:   kept,
		Forecasts: forecasts,
		Results:   results,
		Summary:   sum,
	}, nil
}

// timed wraps the forecaster so every fit is reported to metrics.
func (p *Pipeline) timed() forecast.Forecaster {
	if p.metrics == nil {
		return p.forecaster
	}
	return forecast.Func(func(ctx context.Context, series []forecast.Observation, horizon int) ([]forecast.Estimate, error) {
		start := time.Now()
		est, err := p.forecaster.FitAndForecast(ctx, series, horizon)
		p.metrics.ObserveFit(time.Since(start), err)
		return est, err
	})
}
