package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drstein77/salesforecast/internal/chart"
	"github.com/drstein77/salesforecast/internal/config"
	"github.com/drstein77/salesforecast/internal/dbkeeper"
	"github.com/drstein77/salesforecast/internal/exporter"
	"github.com/drstein77/salesforecast/internal/forecast"
	"github.com/drstein77/salesforecast/internal/loader"
	"github.com/drstein77/salesforecast/internal/logger"
	"github.com/drstein77/salesforecast/internal/metrics"
	"github.com/drstein77/salesforecast/internal/pipeline"
	"github.com/drstein77/salesforecast/internal/storage"
)

// App runs one forecast batch from input files to every configured sink.
type App struct {
	ctx    context.Context
	option *config.Options
	Log    *logger.Logger
}

// New parses command line args and builds the logger.
func New(ctx context.Context, args []string) (*App, error) {
	// create and initialize a new option instance
	option := config.NewOptions()
	if err := option.ParseFlags(args); err != nil {
		return nil, err
	}

	// get a new logger
	nLogger, err := logger.NewLogger(option.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &App{ctx: ctx, option: option, Log: nLogger}, nil
}

// Run loads the input files, forecasts every shop and writes the results.
func (a *App) Run() error {
	defer a.Log.Sync()
	opt := a.option

	txs, err := loader.LoadTransactions(opt.SalesPath, loader.Options{DateLayout: opt.DateLayout})
	if err != nil {
		a.Log.Error("cannot load transactions", zap.Error(err))
		return err
	}
	shops, err := loader.LoadShops(opt.ShopsPath)
	if err != nil {
		a.Log.Error("cannot load shops", zap.Error(err))
		return err
	}
	a.Log.Info("input loaded", zap.Int("transactions", len(txs)), zap.Int("shops", len(shops)))

	fopts := forecast.DefaultOptions()
	fopts.IntervalWidth = opt.IntervalWidth
	model, err := forecast.NewAdditive(fopts)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()

	cfg := pipeline.DefaultConfig()
	cfg.Thresholds.MaxItemCnt = opt.MaxItemCount
	cfg.Thresholds.MaxItemPrice = opt.MaxItemPrice
	cfg.MinMonths = opt.MinMonths
	cfg.Workers = opt.Workers

	runLog := a.Log.With(zap.String("sales_path", opt.SalesPath))
	p, err := pipeline.New(cfg, model, runLog, recorder)
	if err != nil {
		return err
	}
	out, err := p.Run(a.ctx, txs, shops)
	if err != nil {
		return err
	}

	st, err := a.store(out)
	if err != nil {
		a.Log.Error("cannot store forecasts", zap.Error(err))
		return err
	}
	defer st.Close()

	results := st.Results()
	if err := exporter.WriteResults(opt.OutputPath, results); err != nil {
		return err
	}
	a.Log.Info("forecasts written", zap.String("path", opt.OutputPath), zap.Int("rows", len(results)))

	if opt.FullOutputPath != "" {
		if err := exporter.WriteForecasts(opt.FullOutputPath, out.Forecasts); err != nil {
			return err
		}
	}

	if opt.ChartShopID >= 0 {
		if err := a.renderChart(st, out); err != nil {
			return err
		}
	}

	if opt.MetricsFile != "" {
		if err := recorder.WriteTextfile(opt.MetricsFile); err != nil {
			return err
		}
	}

	return nil
}

// renderChart draws the configured shop when it has a forecast in st.
func (a *App) renderChart(st *storage.MemoryStorage, out *pipeline.Outcome) error {
	shopID := a.option.ChartShopID
	r, err := st.Result(shopID)
	if errors.Is(err, storage.ErrNotFound) {
		a.Log.Warn("chart skipped, shop has no forecast", zap.Int("shop_id", shopID))
		return nil
	}
	if err != nil {
		return err
	}

	if err := chart.Render(a.option.ChartPath, shopID, out.Monthly, out.Forecasts); err != nil {
		return err
	}
	a.Log.Info("chart written",
		zap.String("path", a.option.ChartPath),
		zap.Int("shop_id", shopID),
		zap.Float64("yhat", r.Yhat),
	)
	return nil
}

// store keeps the results in memory and, when a database is configured,
// upserts them there as well. The caller closes the returned storage.
func (a *App) store(out *pipeline.Outcome) (*storage.MemoryStorage, error) {
	var keeper storage.Keeper
	if a.option.DSN() != "" {
		kp, err := dbkeeper.NewDBKeeper(a.ctx, a.option.DSN, a.Log)
		if err != nil {
			return nil, err
		}
		if err := kp.Migrate(a.option.MigrationsDir); err != nil {
			kp.Close()
			return nil, err
		}
		keeper = kp
	}

	st := storage.NewMemoryStorage(a.ctx, keeper, a.Log)
	if !st.Ping() {
		st.Close()
		return nil, fmt.Errorf("database is unreachable")
	}
	if err := st.SaveResults(out.Results); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
