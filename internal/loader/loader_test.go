package loader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `date,date_block_num,shop_id,item_id,item_price,item_cnt_day
02.01.2013,0,59,22154,999.00,1.0
03.01.2013,0,25,2552,899.00,1.0
05.01.2013,0,25,2552,899.00,-1.0
`

func TestReadTransactions(t *testing.T) {
	txs, err := ReadTransactions(strings.NewReader(salesCSV), "sales.csv", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, txs, 3)

	first := txs[0]
	assert.Equal(t, time.Date(2013, time.January, 2, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 0, first.DateBlockNum)
	assert.Equal(t, 59, first.ShopID)
	assert.Equal(t, 22154, first.ItemID)
	assert.InDelta(t, 999.0, first.ItemPrice, 1e-9)
	assert.InDelta(t, 1.0, first.ItemCntDay, 1e-9)

	assert.InDelta(t, -1.0, txs[2].ItemCntDay, 1e-9)
}

func TestReadTransactionsColumnOrderAndFallbackLayout(t *testing.T) {
	in := "\ufeffshop_id,item_cnt_day,item_price,item_id,date\n4,2,10.5,7,31/01/2013\n"

	txs, err := ReadTransactions(strings.NewReader(in), "sales.csv", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, 4, txs[0].ShopID)
	assert.Equal(t, -1, txs[0].DateBlockNum)
	assert.Equal(t, time.Date(2013, time.January, 31, 0, 0, 0, 0, time.UTC), txs[0].Date)
}

func TestReadTransactionsCustomLayout(t *testing.T) {
	in := "date,shop_id,item_id,item_price,item_cnt_day\n2013-01-31,4,7,10,1\n"

	_, err := ReadTransactions(strings.NewReader(in), "sales.csv", DefaultOptions())
	require.Error(t, err)

	txs, err := ReadTransactions(strings.NewReader(in), "sales.csv", Options{DateLayout: "2006-01-02"})
	require.NoError(t, err)
	assert.Equal(t, 31, txs[0].Date.Day())
}

func TestReadTransactionsParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		line   int
		column string
		target error
	}{
		{
			name:   "missing column",
			in:     "date,shop_id,item_id,item_price\n02.01.2013,1,1,1\n",
			line:   1,
			column: "item_cnt_day",
			target: ErrMissingColumn,
		},
		{
			name:   "bad date",
			in:     "date,shop_id,item_id,item_price,item_cnt_day\n02.01.2013,1,1,1,1\n2013/13/45,1,1,1,1\n",
			line:   3,
			column: "date",
		},
		{
			name:   "bad number",
			in:     "date,shop_id,item_id,item_price,item_cnt_day\n02.01.2013,1,1,abc,1\n",
			line:   2,
			column: "item_price",
		},
		{
			name:   "nan price",
			in:     "date,shop_id,item_id,item_price,item_cnt_day\n02.01.2013,4,1,NaN,1\n",
			line:   2,
			column: "item_price",
		},
		{
			name:   "infinite count",
			in:     "date,shop_id,item_id,item_price,item_cnt_day\n02.01.2013,4,1,10,+Inf\n",
			line:   2,
			column: "item_cnt_day",
		},
		{
			name:   "fractional shop id",
			in:     "date,shop_id,item_id,item_price,item_cnt_day\n02.01.2013,1.5,1,1,1\n",
			line:   2,
			column: "shop_id",
		},
		{
			name:   "empty file",
			in:     "",
			line:   1,
			target: ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTransactions(strings.NewReader(tt.in), "sales.csv", DefaultOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIngestion)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestReadShops(t *testing.T) {
	in := "shop_name,shop_id\n\"Shop, four\",4\nShop five ,5\n"

	shops, err := ReadShops(strings.NewReader(in), "shops.csv")
	require.NoError(t, err)
	require.Len(t, shops, 2)
	assert.Equal(t, 4, shops[0].ShopID)
	assert.Equal(t, "Shop, four", shops[0].ShopName)
	assert.Equal(t, "Shop five", shops[1].ShopName)
}

func TestReadShopsDuplicateID(t *testing.T) {
	in := "shop_name,shop_id\na,4\nb,4\n"

	_, err := ReadShops(strings.NewReader(in), "shops.csv")
	assert.ErrorIs(t, err, ErrDuplicateShop)
	assert.ErrorIs(t, err, ErrIngestion)
}

func TestLoadMissingFileIsIOError(t *testing.T) {
	_, err := LoadTransactions(filepath.Join(t.TempDir(), "sales.csv"), DefaultOptions())
	require.Error(t, err)

	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, ErrIngestion)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadShops(filepath.Join(t.TempDir(), "shops.csv"))
	assert.ErrorAs(t, err, &ioErr)
}

func TestLoadTransactionsFromZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("sales.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(salesCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	txs, err := LoadTransactions(path, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestLoadZipParseErrorNamesMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("2013/sales.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("date,shop_id,item_id,item_price,item_cnt_day\n02.01.2013,4,1,Inf,1\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = LoadTransactions(path, DefaultOptions())
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path+":2013/sales.csv", pe.Path)
	assert.Equal(t, "item_price", pe.Column)
}
