package pipeline

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drstein77/salesforecast/internal/forecast"
	"github.com/drstein77/salesforecast/internal/models"
)

// Horizon is the number of months forecast past each shop's history.
const Horizon = 1

// shopForecast is the outcome slot owned by one shop's goroutine.
type shopForecast struct {
	points []models.ForecastPoint
	err    error
}

// ForecastShops fits f once per shop in points, at most workers at a time.
// A shop whose fit fails is reported in the returned FailedShop list and the
// other shops carry on. Forecast points come back ordered by shop, then date.
// The only error returned is the context's.
func ForecastShops(ctx context.Context, points []models.MonthlyPoint, f forecast.Forecaster, workers int) ([]models.ForecastPoint, []models.FailedShop, error) {
	if workers < 1 {
		workers = 1
	}

	groups := groupByShop(points)
	slots := make([]shopForecast, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range groups {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = fitShop(gctx, groups[i], f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		out    []models.ForecastPoint
		failed []models.FailedShop
	)
	for i, s := range slots {
		if s.err != nil {
			failed = append(failed, models.FailedShop{ShopID: groups[i].shopID, Reason: s.err.Error()})
			continue
		}
		out = append(out, s.points...)
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].ShopID < failed[j].ShopID })

	return out, failed, nil
}

func fitShop(ctx context.Context, s shopSeries, f forecast.Forecaster) shopForecast {
	series := make([]forecast.Observation, len(s.points))
	for i, p := range s.points {
		series[i] = forecast.Observation{Date: p.Month, Value: p.Units}
	}

	est, err := f.FitAndForecast(ctx, series, Horizon)
	if err != nil {
		return shopForecast{err: err}
	}

	points := make([]models.ForecastPoint, len(est))
	for i, e := range est {
		points[i] = models.ForecastPoint{
			ShopID:    s.shopID,
			Date:      e.Date,
			Yhat:      e.Yhat,
			YhatLower: e.Lower,
			YhatUpper: e.Upper,
		}
	}
	return shopForecast{points: points}
}

// Assemble keeps, for every shop, the forecast points dated after the shop's
// last observed month and joins them with shop metadata. Shops missing from
// shops are dropped and returned as unknown. Results are ordered by shop id,
// then date.
func Assemble(forecasts []models.ForecastPoint, lastObserved map[int]time.Time, shops []models.Shop) ([]models.Result, []int) {
	names := make(map[int]string, len(shops))
	for _, s := range shops {
		names[s.ShopID] = s.ShopName
	}

	var results []models.Result
	unknown := make(map[int]struct{})
	for _, fp := range forecasts {
		last, ok := lastObserved[fp.ShopID]
		if !ok || !fp.Date.After(last) {
			continue
		}
		name, ok := names[fp.ShopID]
		if !ok {
			unknown[fp.ShopID] = struct{}{}
			continue
		}
		results = append(results, models.Result{
			Date:      fp.Date,
			ShopID:    fp.ShopID,
			Yhat:      fp.Yhat,
			YhatLower: fp.YhatLower,
			YhatUpper: fp.YhatUpper,
			ShopName:  name,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].ShopID != results[j].ShopID {
			return results[i].ShopID < results[j].ShopID
		}
		return results[i].Date.Before(results[j].Date)
	})

	ids := make([]int, 0, len(unknown))
	for id := range unknown {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return results, ids
}

// LastObserved returns the latest month of every shop in points.
func LastObserved(points []models.MonthlyPoint) map[int]time.Time {
	last := make(map[int]time.Time)
	for _, p := range points {
		if cur, ok := last[p.ShopID]; !ok || p.Month.After(cur) {
			last[p.ShopID] = p.Month
		}
	}
	return last
}
