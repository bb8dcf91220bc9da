package pipeline

import (
	"sort"

	"github.com/drstein77/salesforecast/internal/models"
)

// Thresholds bound the values a transaction may carry to survive cleaning.
// Lower count bound is inclusive, every other bound exclusive.
type Thresholds struct {
	MinItemCnt   float64
	MaxItemCnt   float64
	MinItemPrice float64
	MaxItemPrice float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinItemCnt:   0,
		MaxItemCnt:   1000,
		MinItemPrice: 0,
		MaxItemPrice: 250000,
	}
}

func (th Thresholds) accept(tx models.Transaction) bool {
	return tx.ItemCntDay >= th.MinItemCnt && tx.ItemCntDay < th.MaxItemCnt &&
		tx.ItemPrice > th.MinItemPrice && tx.ItemPrice < th.MaxItemPrice
}

// Clean returns a new slice with the transactions inside th and the number of
// rows it dropped.
func Clean(txs []models.Transaction, th Thresholds) ([]models.Transaction, int) {
	kept := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if th.accept(tx) {
			kept = append(kept, tx)
		}
	}
	return kept, len(txs) - len(kept)
}

type shopMonth struct {
	shopID int
	month  int
}

// Aggregate sums units sold per shop and calendar month. Only months with at
// least one transaction appear. The result is ordered by shop id, then month.
func Aggregate(txs []models.Transaction) []models.MonthlyPoint {
	sums := make(map[shopMonth]*models.MonthlyPoint)
	for _, tx := range txs {
		key := shopMonth{shopID: tx.ShopID, month: models.MonthIndex(tx.Date)}
		p, ok := sums[key]
		if !ok {
			p = &models.MonthlyPoint{ShopID: tx.ShopID, Month: models.MonthEnd(tx.Date)}
			sums[key] = p
		}
		p.Units += tx.ItemCntDay
	}

	points := make([]models.MonthlyPoint, 0, len(sums))
	for _, p := range sums {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].ShopID != points[j].ShopID {
			return points[i].ShopID < points[j].ShopID
		}
		return points[i].Month.Before(points[j].Month)
	})
	return points
}

// FilterShops drops every shop with fewer than minMonths monthly points and
// reports the dropped shops in ascending id order.
func FilterShops(points []models.MonthlyPoint, minMonths int) ([]models.MonthlyPoint, []models.ExcludedShop) {
	counts := make(map[int]int)
	for _, p := range points {
		counts[p.ShopID]++
	}

	kept := make([]models.MonthlyPoint, 0, len(points))
	for _, p := range points {
		if counts[p.ShopID] >= minMonths {
			kept = append(kept, p)
		}
	}

	var excluded []models.ExcludedShop
	for id, n := range counts {
		if n < minMonths {
			excluded = append(excluded, models.ExcludedShop{ShopID: id, Months: n})
		}
	}
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].ShopID < excluded[j].ShopID })

	return kept, excluded
}

// shopSeries is the monthly history of one shop in chronological order.
type shopSeries struct {
	shopID int
	points []models.MonthlyPoint
}

// groupByShop splits points, which must be ordered by shop then month, into
// per-shop series.
func groupByShop(points []models.MonthlyPoint) []shopSeries {
	var groups []shopSeries
	for i := 0; i < len(points); {
		j := i
		for j < len(points) && points[j].ShopID == points[i].ShopID {
			j++
		}
		groups = append(groups, shopSeries{shopID: points[i].ShopID, points: points[i:j]})
		i = j
	}
	return groups
}
