package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drstein77/salesforecast/internal/models"
)

func TestObserveSummary(t *testing.T) {
	r := NewRecorder()
	r.ObserveSummary(models.Summary{
		TransactionsLoaded:   10,
		TransactionsRejected: 2,
		ShopsForecast:        3,
		Excluded:             []models.ExcludedShop{{ShopID: 5, Months: 2}},
		Failed:               []models.FailedShop{{ShopID: 6, Reason: "x"}, {ShopID: 7, Reason: "y"}},
	})

	assert.InDelta(t, 10, testutil.ToFloat64(r.loaded), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.rejected), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(r.forecast), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.excluded), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.failed), 0)
	assert.Positive(t, testutil.ToFloat64(r.lastRun))
}

func TestObserveFitByOutcome(t *testing.T) {
	r := NewRecorder()
	r.ObserveFit(time.Millisecond, nil)
	r.ObserveFit(2*time.Millisecond, nil)
	r.ObserveFit(time.Millisecond, errors.New("singular"))

	assert.Equal(t, 2, testutil.CollectAndCount(r.fits))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveSummary(models.Summary{TransactionsLoaded: 7})
	r.ObserveFit(time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "salesforecast.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "salesforecast_transactions_loaded_total 7")
	assert.Contains(t, string(b), `salesforecast_fit_duration_seconds_count{outcome="ok"} 1`)
}
