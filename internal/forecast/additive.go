package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/drstein77/salesforecast/internal/models"
)

// maxYearlyOrder keeps Fourier terms distinguishable on a 12-month grid.
const maxYearlyOrder = 5

// Options configures the Additive model.
type Options struct {
	IntervalWidth    float64 // probability mass inside [Lower, Upper]
	YearlyOrder      int     // Fourier order of yearly seasonality, 0 disables it
	ChangePoints     int     // max trend changepoints
	ChangePointRange float64 // share of history where changepoints may be placed
	MinDataPoints    int
}

// DefaultOptions returns the defaults used by the pipeline.
func DefaultOptions() Options {
	return Options{
		IntervalWidth:    0.8,
		YearlyOrder:      3,
		ChangePoints:     2,
		ChangePointRange: 0.8,
		MinDataPoints:    2,
	}
}

// Additive models a monthly series as
//
//	y(t) = trend(t) + seasonal(month of year) + noise
//
// where trend is piecewise linear with hinges at detected changepoints and the
// seasonal part is a truncated Fourier series over the calendar year. All
// coefficients are estimated jointly by least squares.
type Additive struct {
	opts Options
	z    float64
}

// NewAdditive validates opts and returns a model ready to fit.
func NewAdditive(opts Options) (*Additive, error) {
	if opts.IntervalWidth <= 0 || opts.IntervalWidth >= 1 {
		return nil, fmt.Errorf("interval width %v outside (0, 1)", opts.IntervalWidth)
	}
	if opts.YearlyOrder < 0 || opts.YearlyOrder > maxYearlyOrder {
		return nil, fmt.Errorf("yearly order %d outside [0, %d]", opts.YearlyOrder, maxYearlyOrder)
	}
	if opts.ChangePoints < 0 {
		return nil, fmt.Errorf("negative changepoint count %d", opts.ChangePoints)
	}
	if opts.ChangePointRange <= 0 || opts.ChangePointRange > 1 {
		return nil, fmt.Errorf("changepoint range %v outside (0, 1]", opts.ChangePointRange)
	}
	if opts.MinDataPoints < 2 {
		opts.MinDataPoints = 2
	}

	return &Additive{
		opts: opts,
		z:    distuv.UnitNormal.Quantile(0.5 + opts.IntervalWidth/2),
	}, nil
}

// fit holds the estimated parameters for one series.
type fit struct {
	origin int       // month index of the first observation
	span   float64   // months between first and last observation
	yMin   float64   // y normalization offset
	yScale float64   // y normalization scale
	cps    []float64 // changepoints on the normalized time axis
	order  int       // Fourier order actually used
	beta   *mat.VecDense
	inv    *mat.Dense // (X'X)^-1, for leverage
	sigma  float64    // residual std on the normalized scale
}

// FitAndForecast implements Forecaster.
func (a *Additive) FitAndForecast(ctx context.Context, series []Observation, horizon int) ([]Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if horizon < 1 {
		return nil, ErrBadHorizon
	}
	if err := a.validate(series); err != nil {
		return nil, err
	}

	f, err := a.train(series)
	if err != nil {
		return nil, err
	}

	n := len(series)
	out := make([]Estimate, 0, n+horizon)
	for _, obs := range series {
		out = append(out, f.estimate(a.z, obs.Date, models.MonthIndex(obs.Date)))
	}

	last := series[n-1].Date
	lastIdx := models.MonthIndex(last)
	for h := 1; h <= horizon; h++ {
		out = append(out, f.estimate(a.z, models.AddMonths(last, h), lastIdx+h))
	}

	return out, nil
}

func (a *Additive) validate(series []Observation) error {
	if len(series) < a.opts.MinDataPoints {
		return fmt.Errorf("%w: need at least %d points, got %d", ErrTooShort, a.opts.MinDataPoints, len(series))
	}
	prev := math.MinInt
	for i, obs := range series {
		if math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
			return fmt.Errorf("%w at position %d", ErrNonFinite, i)
		}
		idx := models.MonthIndex(obs.Date)
		if idx <= prev {
			return fmt.Errorf("%w: %s follows an observation in the same or a later month",
				ErrUnordered, obs.Date.Format("2006-01-02"))
		}
		prev = idx
	}
	return nil
}

func (a *Additive) train(series []Observation) (*fit, error) {
	n := len(series)

	f := &fit{origin: models.MonthIndex(series[0].Date)}
	f.span = float64(models.MonthIndex(series[n-1].Date) - f.origin)

	t := make([]float64, n)
	y := make([]float64, n)
	moy := make([]int, n)
	for i, obs := range series {
		idx := models.MonthIndex(obs.Date)
		t[i] = f.axis(idx)
		moy[i] = idx % 12
		y[i] = obs.Value
	}

	f.yMin, f.yScale = floats.Min(y), floats.Max(y)-floats.Min(y)
	if f.yScale == 0 {
		f.yScale = 1
	}
	yNorm := make([]float64, n)
	for i := range y {
		yNorm[i] = (y[i] - f.yMin) / f.yScale
	}

	// Extra terms are only added while the design stays overdetermined.
	alpha, slope := stat.LinearRegression(t, yNorm, nil, false)
	f.cps = a.detectChangePoints(t, yNorm, alpha, slope)
	if 2+len(f.cps) >= n {
		f.cps = nil
	}
	if a.opts.YearlyOrder > 0 && coversYear(moy) && 2+len(f.cps)+2*a.opts.YearlyOrder < n {
		f.order = a.opts.YearlyOrder
	}

	p := f.params()
	X := mat.NewDense(n, p, nil)
	for i := range t {
		X.SetRow(i, f.row(t[i], moy[i]))
	}

	f.beta = mat.NewVecDense(p, nil)
	if err := f.beta.SolveVec(X, mat.NewVecDense(n, yNorm)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	f.inv = mat.NewDense(p, p, nil)
	if err := f.inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, f.beta)
	sse := 0.0
	for i := 0; i < n; i++ {
		r := yNorm[i] - fitted.AtVec(i)
		sse += r * r
	}
	if n > p {
		f.sigma = math.Sqrt(sse / float64(n-p))
	}

	return f, nil
}

// detectChangePoints returns trend changepoints on the normalized time axis,
// chosen where the mean residual of the linear fit shifts the most between
// adjacent windows.
func (a *Additive) detectChangePoints(t, y []float64, alpha, slope float64) []float64 {
	n := len(t)
	if a.opts.ChangePoints == 0 {
		return nil
	}
	window := max(3, n/20)
	rangeEnd := int(float64(n) * a.opts.ChangePointRange)
	if rangeEnd-window <= window {
		return nil
	}

	residuals := make([]float64, n)
	for i := range t {
		residuals[i] = y[i] - (alpha + slope*t[i])
	}

	type candidate struct {
		idx   int
		score float64
	}
	candidates := make([]candidate, 0, rangeEnd-2*window)
	for i := window; i < rangeEnd-window; i++ {
		before := stat.Mean(residuals[i-window:i], nil)
		after := stat.Mean(residuals[i:i+window], nil)
		candidates = append(candidates, candidate{idx: i, score: math.Abs(after - before)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var chosen []int
	for _, c := range candidates {
		if len(chosen) == a.opts.ChangePoints || c.score == 0 {
			break
		}
		tooClose := false
		for _, idx := range chosen {
			if abs(idx-c.idx) < window {
				tooClose = true
				break
			}
		}
		if !tooClose {
			chosen = append(chosen, c.idx)
		}
	}
	sort.Ints(chosen)

	cps := make([]float64, len(chosen))
	for i, idx := range chosen {
		cps[i] = t[idx]
	}
	return cps
}

func (f *fit) params() int {
	return 2 + len(f.cps) + 2*f.order
}

func (f *fit) axis(monthIdx int) float64 {
	if f.span == 0 {
		return 0
	}
	return float64(monthIdx-f.origin) / f.span
}

// row is one line of the design matrix: intercept, slope, changepoint hinges,
// then sin/cos pairs of the yearly Fourier series.
func (f *fit) row(t float64, moy int) []float64 {
	r := make([]float64, f.params())
	r[0] = 1
	r[1] = t
	for j, cp := range f.cps {
		r[2+j] = math.Max(0, t-cp)
	}
	off := 2 + len(f.cps)
	for k := 1; k <= f.order; k++ {
		phase := 2 * math.Pi * float64(k) * float64(moy) / 12
		r[off+2*(k-1)] = math.Sin(phase)
		r[off+2*(k-1)+1] = math.Cos(phase)
	}
	return r
}

func (f *fit) estimate(z float64, date time.Time, monthIdx int) Estimate {
	x := mat.NewVecDense(f.params(), f.row(f.axis(monthIdx), monthIdx%12))
	yhat := mat.Dot(x, f.beta)
	leverage := math.Max(0, mat.Inner(x, f.inv, x))
	half := z * f.sigma * math.Sqrt(1+leverage)

	return Estimate{
		Date:  date,
		Yhat:  yhat*f.yScale + f.yMin,
		Lower: (yhat-half)*f.yScale + f.yMin,
		Upper: (yhat+half)*f.yScale + f.yMin,
	}
}

// coversYear reports whether every month of the year occurs in moy.
func coversYear(moy []int) bool {
	var seen [12]bool
	count := 0
	for _, m := range moy {
		if !seen[m] {
			seen[m] = true
			count++
		}
	}
	return count == 12
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
