// Package forecast fits univariate monthly models and extends them into the future.
//
// Pipelines depend only on the Forecaster interface; Additive is the default
// implementation, an additive trend plus yearly seasonality model in the style
// of Prophet.
package forecast

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTooShort   = errors.New("series too short")
	ErrUnordered  = errors.New("series months must be strictly increasing")
	ErrNonFinite  = errors.New("series contains a non-finite value")
	ErrSingular   = errors.New("model design is singular")
	ErrBadHorizon = errors.New("horizon must be at least 1")
)

// Observation is one point of a monthly series.
type Observation struct {
	Date  time.Time
	Value float64
}

// Estimate is a fitted or forecast value with its uncertainty interval.
type Estimate struct {
	Date  time.Time
	Yhat  float64
	Lower float64
	Upper float64
}

// Forecaster fits a model on series and returns one estimate per observation
// followed by horizon monthly forecasts.
type Forecaster interface {
	FitAndForecast(ctx context.Context, series []Observation, horizon int) ([]Estimate, error)
}

// Func adapts a plain function to the Forecaster interface.
type Func func(ctx context.Context, series []Observation, horizon int) ([]Estimate, error)

func (f Func) FitAndForecast(ctx context.Context, series []Observation, horizon int) ([]Estimate, error) {
	return f(ctx, series, horizon)
}
