// Package chart draws actual and predicted monthly units for a single shop.
package chart

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/drstein77/salesforecast/internal/models"
)

var ErrNoData = errors.New("no data for shop")

var (
	actualColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	fittedColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	boundColor  = color.RGBA{R: 255, G: 127, B: 14, A: 120}
)

// Render plots the monthly history and the forecast of shopID and saves the
// chart to path. The image format follows the extension (.png, .svg, .pdf).
func Render(path string, shopID int, monthly []models.MonthlyPoint, forecasts []models.ForecastPoint) error {
	actual := make(plotter.XYs, 0)
	for _, m := range monthly {
		if m.ShopID == shopID {
			actual = append(actual, plotter.XY{X: float64(m.Month.Unix()), Y: m.Units})
		}
	}

	var yhat, lower, upper plotter.XYs
	for _, f := range forecasts {
		if f.ShopID != shopID {
			continue
		}
		x := float64(f.Date.Unix())
		yhat = append(yhat, plotter.XY{X: x, Y: f.Yhat})
		lower = append(lower, plotter.XY{X: x, Y: f.YhatLower})
		upper = append(upper, plotter.XY{X: x, Y: f.YhatUpper})
	}
	if len(actual) == 0 && len(yhat) == 0 {
		return fmt.Errorf("chart shop %d: %w", shopID, ErrNoData)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Shop %d: monthly units sold", shopID)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Units"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-Jan"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	if len(actual) > 0 {
		line, points, err := plotter.NewLinePoints(actual)
		if err != nil {
			return fmt.Errorf("chart actual series: %w", err)
		}
		line.Color = actualColor
		line.Width = vg.Points(2)
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		points.GlyphStyle.Color = actualColor
		p.Add(line, points)
		p.Legend.Add("actual", line, points)
	}

	if len(yhat) > 0 {
		pred, err := plotter.NewLine(yhat)
		if err != nil {
			return fmt.Errorf("chart prediction: %w", err)
		}
		pred.Color = fittedColor
		pred.Width = vg.Points(2)
		p.Add(pred)
		p.Legend.Add("prediction", pred)

		for _, bound := range []plotter.XYs{lower, upper} {
			l, err := plotter.NewLine(bound)
			if err != nil {
				return fmt.Errorf("chart interval: %w", err)
			}
			l.Color = boundColor
			l.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
			p.Add(l)
		}
	}

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}
