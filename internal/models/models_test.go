package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthEnd(t *testing.T) {
	assert.Equal(t, date(2013, time.January, 31), MonthEnd(date(2013, time.January, 2)))
	assert.Equal(t, date(2013, time.February, 28), MonthEnd(date(2013, time.February, 28)))
	assert.Equal(t, date(2016, time.February, 29), MonthEnd(date(2016, time.February, 1)))
	assert.Equal(t, date(2015, time.December, 31), MonthEnd(time.Date(2015, time.December, 31, 23, 59, 0, 0, time.UTC)))
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, date(2013, time.April, 30), AddMonths(date(2013, time.March, 31), 1))
	assert.Equal(t, date(2015, time.November, 30), AddMonths(date(2015, time.October, 31), 1))
	assert.Equal(t, date(2016, time.January, 31), AddMonths(date(2015, time.December, 31), 1))
	assert.Equal(t, date(2013, time.February, 28), AddMonths(date(2013, time.January, 31), 1))
}

func TestMonthIndex(t *testing.T) {
	assert.Equal(t, 1, MonthIndex(date(2013, time.February, 28))-MonthIndex(date(2013, time.January, 31)))
	assert.Equal(t, 12, MonthIndex(date(2014, time.January, 1))-MonthIndex(date(2013, time.January, 31)))
}
