package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/drstein77/salesforecast/internal/compress"
	"github.com/drstein77/salesforecast/internal/models"
)

const DefaultDateLayout = "02.01.2006"

// fallbackLayouts are tried after Options.DateLayout; all are day-month-year.
var fallbackLayouts = []string{"02.01.2006", "02/01/2006", "02-01-2006", "2.1.2006", "2/1/2006"}

// Options holds options for transaction loading.
type Options struct {
	DateLayout string
}

func DefaultOptions() Options {
	return Options{DateLayout: DefaultDateLayout}
}

// LoadTransactions reads the daily sales file at path (.csv, .zip or .tar).
func LoadTransactions(path string, opts Options) ([]models.Transaction, error) {
	rc, err := compress.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer rc.Close()

	return ReadTransactions(rc, sourceName(path, rc), opts)
}

// LoadShops reads the shop metadata file at path (.csv, .zip or .tar).
func LoadShops(path string) ([]models.Shop, error) {
	rc, err := compress.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer rc.Close()

	return ReadShops(rc, sourceName(path, rc))
}

// sourceName names the CSV being parsed, including the member for archives.
func sourceName(path string, rc io.Reader) string {
	if m, ok := rc.(compress.Member); ok {
		return path + ":" + m.Name()
	}
	return path
}

// ReadTransactions parses transactions from r. name is used in error messages.
func ReadTransactions(r io.Reader, name string, opts Options) ([]models.Transaction, error) {
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}

	tbl, err := newTable(r, name)
	if err != nil {
		return nil, err
	}

	cols, err := tbl.require("date", "shop_id", "item_id", "item_price", "item_cnt_day")
	if err != nil {
		return nil, err
	}
	dateIdx, shopIdx, itemIdx, priceIdx, cntIdx := cols[0], cols[1], cols[2], cols[3], cols[4]
	blockIdx, hasBlock := tbl.index["date_block_num"]

	var txs []models.Transaction
	for {
		record, err := tbl.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var tx models.Transaction
		if tx.Date, err = tbl.parseDate(record, dateIdx, opts.DateLayout); err != nil {
			return nil, err
		}
		if tx.ShopID, err = tbl.parseInt(record, shopIdx); err != nil {
			return nil, err
		}
		if tx.ItemID, err = tbl.parseInt(record, itemIdx); err != nil {
			return nil, err
		}
		if tx.ItemPrice, err = tbl.parseFloat(record, priceIdx); err != nil {
			return nil, err
		}
		if tx.ItemCntDay, err = tbl.parseFloat(record, cntIdx); err != nil {
			return nil, err
		}
		tx.DateBlockNum = -1
		if hasBlock {
			if tx.DateBlockNum, err = tbl.parseInt(record, blockIdx); err != nil {
				return nil, err
			}
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

// ReadShops parses shop metadata from r. Shop ids must be unique.
func ReadShops(r io.Reader, name string) ([]models.Shop, error) {
	tbl, err := newTable(r, name)
	if err != nil {
		return nil, err
	}

	cols, err := tbl.require("shop_id", "shop_name")
	if err != nil {
		return nil, err
	}
	idIdx, nameIdx := cols[0], cols[1]

	seen := make(map[int]struct{})
	var shops []models.Shop
	for {
		record, err := tbl.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := tbl.parseInt(record, idIdx)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, tbl.fail(idIdx, record[idIdx], ErrDuplicateShop)
		}
		seen[id] = struct{}{}

		shops = append(shops, models.Shop{ShopID: id, ShopName: strings.TrimSpace(record[nameIdx])})
	}

	return shops, nil
}

// table walks a headered CSV stream and turns field errors into ParseErrors.
type table struct {
	name    string
	reader  *csv.Reader
	headers []string
	index   map[string]int
	line    int
}

func newTable(r io.Reader, name string) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Path: name, Line: 1, Err: ErrEmptyFile}
	}
	if err != nil {
		return nil, wrapCSVError(name, err)
	}

	t := &table{
		name:    name,
		reader:  reader,
		headers: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
		line:    1,
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(strings.Trim(h, "\"")))
		t.headers[i] = h
		if _, exists := t.index[h]; !exists {
			t.index[h] = i
		}
	}
	return t, nil
}

func (t *table) require(columns ...string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := t.index[c]
		if !ok {
			return nil, &ParseError{Path: t.name, Line: 1, Column: c, Err: ErrMissingColumn}
		}
		idx[i] = j
	}
	return idx, nil
}

func (t *table) next() ([]string, error) {
	record, err := t.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, wrapCSVError(t.name, err)
	}
	line, _ := t.reader.FieldPos(0)
	t.line = line
	return record, nil
}

func (t *table) fail(col int, value string, err error) *ParseError {
	return &ParseError{Path: t.name, Line: t.line, Column: t.headers[col], Value: value, Err: err}
}

func (t *table) parseInt(record []string, col int) (int, error) {
	raw := strings.TrimSpace(record[col])
	v, err := strconv.Atoi(raw)
	if err == nil {
		return v, nil
	}
	// integral values are sometimes exported as "4.0"
	f, ferr := strconv.ParseFloat(raw, 64)
	if ferr == nil && f == float64(int(f)) {
		return int(f), nil
	}
	return 0, t.fail(col, raw, errors.New("not an integer"))
}

func (t *table) parseFloat(record []string, col int) (float64, error) {
	raw := strings.TrimSpace(record[col])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, t.fail(col, raw, errors.New("not a number"))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, t.fail(col, raw, errors.New("not a finite number"))
	}
	return v, nil
}

func (t *table) parseDate(record []string, col int, layout string) (time.Time, error) {
	raw := strings.TrimSpace(record[col])
	if ts, err := time.Parse(layout, raw); err == nil {
		return ts, nil
	}
	for _, l := range fallbackLayouts {
		if ts, err := time.Parse(l, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, t.fail(col, raw, fmt.Errorf("not a day-month-year date (layout %s)", layout))
}

func wrapCSVError(name string, err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Path: name, Line: csvErr.Line, Err: csvErr.Err}
	}
	return &IOError{Path: name, Err: err}
}
