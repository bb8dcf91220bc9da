package models

import "time"

// Transaction is one row of the daily sales file.
type Transaction struct {
	Date         time.Time
	DateBlockNum int
	ShopID       int
	ItemID       int
	ItemPrice    float64
	ItemCntDay   float64
}

type Shop struct {
	ShopID   int    `json:"shop_id"`
	ShopName string `json:"shop_name"`
}

// MonthlyPoint holds the units sold by a shop during one calendar month.
// Month is the last day of that month.
type MonthlyPoint struct {
	ShopID int
	Month  time.Time
	Units  float64
}

// ForecastPoint is a fitted or forecasted value for a shop and month.
type ForecastPoint struct {
	ShopID    int
	Date      time.Time
	Yhat      float64
	YhatLower float64
	YhatUpper float64
}

// Result is a next-month forecast joined with shop metadata.
type Result struct {
	Date      time.Time `json:"date"`
	ShopID    int       `json:"shop_id"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
	ShopName  string    `json:"shop_name"`
}

type ExcludedShop struct {
	ShopID int `json:"shop_id"`
	Months int `json:"months"`
}

type FailedShop struct {
	ShopID int    `json:"shop_id"`
	Reason string `json:"reason"`
}

// Summary reports what happened to every shop during a run.
type Summary struct {
	TransactionsLoaded   int            `json:"transactions_loaded"`
	TransactionsRejected int            `json:"transactions_rejected"`
	ShopsSeen            int            `json:"shops_seen"`
	ShopsForecast        int            `json:"shops_forecast"`
	TargetMonth          time.Time      `json:"target_month"`
	Excluded             []ExcludedShop `json:"excluded"`
	Failed               []FailedShop   `json:"failed"`
	UnknownShops         []int          `json:"unknown_shops"`
	OffTarget            []int          `json:"off_target"`
}

// MonthEnd returns the last calendar day of t's month at UTC midnight.
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the last day of the month k months after t's month.
func AddMonths(t time.Time, k int) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+time.Month(k)+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthIndex numbers calendar months consecutively (year*12 + month-1).
func MonthIndex(t time.Time) int {
	y, m, _ := t.Date()
	return y*12 + int(m) - 1
}
