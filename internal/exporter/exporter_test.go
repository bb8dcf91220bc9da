package exporter

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/drstein77/salesforecast/internal/compress"
	"github.com/drstein77/salesforecast/internal/models"
)

var results = []models.Result{
	{
		Date:      time.Date(2013, time.April, 30, 0, 0, 0, 0, time.UTC),
		ShopID:    4,
		Yhat:      1016.5,
		YhatLower: 900.25,
		YhatUpper: 1132.75,
		ShopName:  "Shop, four",
	},
	{
		Date:      time.Date(2013, time.May, 31, 0, 0, 0, 0, time.UTC),
		ShopID:    6,
		Yhat:      29,
		YhatLower: 29,
		YhatUpper: 29,
		ShopName:  "Shop six",
	},
}

const resultsCSV = `date,shop_id,yhat,yhat_lower,yhat_upper,shop_name
2013-04-30,4,1016.5,900.25,1132.75,"Shop, four"
2013-05-31,6,29,29,29,Shop six
`

func TestWriteResultsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "forecast.csv")
	require.NoError(t, WriteResults(path, results))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, resultsCSV, string(b))
}

func TestWriteResultsZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.zip")
	require.NoError(t, WriteResults(path, results))

	rc, err := compress.Open(path)
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, resultsCSV, string(b))
}

func TestWriteResultsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.xlsx")
	require.NoError(t, WriteResults(path, results))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultHeader, rows[0])
	assert.Equal(t, []string{"2013-04-30", "4", "1016.5", "900.25", "1132.75", "Shop, four"}, rows[1])
	assert.Equal(t, "Shop six", rows[2][5])
}

func TestWriteForecastsCSV(t *testing.T) {
	points := []models.ForecastPoint{
		{ShopID: 4, Date: time.Date(2013, time.January, 31, 0, 0, 0, 0, time.UTC), Yhat: 1, YhatLower: 0.5, YhatUpper: 1.5},
	}
	path := filepath.Join(t.TempDir(), "full.csv")
	require.NoError(t, WriteForecasts(path, points))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,shop_id,yhat,yhat_lower,yhat_upper\n2013-01-31,4,1,0.5,1.5\n", string(b))
}

func TestWriteEmptyResultsKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.csv")
	require.NoError(t, WriteResults(path, nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,shop_id,yhat,yhat_lower,yhat_upper,shop_name\n", string(b))
}

func TestWriteUnsupportedFormat(t *testing.T) {
	err := WriteResults(filepath.Join(t.TempDir(), "forecast.json"), results)
	assert.ErrorContains(t, err, "unsupported output format")
}
