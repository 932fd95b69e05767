package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ErrUnsupportedFormat is returned for files that are not csv, json or parquet.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Record is one usable price observation. Extra input fields are ignored.
type Record struct {
	Price     float64 `json:"price" parquet:"price"`
	Date      string  `json:"date,omitempty" parquet:"date,optional"`
	ProductID string  `json:"product_id,omitempty" parquet:"product_id,optional"`
}

// Dataset is the parsed content of one file, in file order.
type Dataset struct {
	Records []Record
	Dropped int
}

// Prices returns the price column in order.
func (d *Dataset) Prices() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Price
	}
	return out
}

func (d *Dataset) add(r Record, ok bool) {
	if !ok {
		d.Dropped++
		return
	}
	d.Records = append(d.Records, r)
}

// Load picks a parser from the file extension.
func Load(name string, r io.Reader) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ParseCSV(r)
	case ".json":
		return ParseJSON(r)
	case ".parquet":
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
		return ParseParquet(bytes.NewReader(b), int64(len(b)))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ParseCSV expects a header row. The price column is located by name and
// falls back to the first column; date and product_id are optional.
func ParseCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	priceIdx, ok := col["price"]
	if !ok {
		priceIdx = 0
	}
	field := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	ds := &Dataset{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		var raw string
		if priceIdx < len(row) {
			raw = row[priceIdx]
		}
		price, ok := ParsePrice(raw)
		ds.add(Record{Price: price, Date: field(row, "date"), ProductID: field(row, "product_id")}, ok)
	}
	return ds, nil
}

// ParseJSON expects an array of objects with a price field that is either a
// number or a numeric string.
func ParseJSON(r io.Reader) (*Dataset, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	ds := &Dataset{}
	for _, row := range rows {
		price, ok := Coerce(row["price"])
		ds.add(Record{Price: price, Date: str(row["date"]), ProductID: str(row["product_id"])}, ok)
	}
	return ds, nil
}

type parquetRow struct {
	Price     *float64 `parquet:"price,optional"`
	Date      string   `parquet:"date,optional"`
	ProductID string   `parquet:"product_id,optional"`
}

// ParseParquet reads rows with an optional double price column.
func ParseParquet(r io.ReaderAt, size int64) (*Dataset, error) {
	rows, err := parquet.Read[parquetRow](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	ds := &Dataset{}
	for _, row := range rows {
		if row.Price == nil {
			ds.Dropped++
			continue
		}
		price, ok := valid(*row.Price)
		ds.add(Record{Price: price, Date: row.Date, ProductID: row.ProductID}, ok)
	}
	return ds, nil
}

// WriteParquet exports records so they can be reloaded with ParseParquet.
func WriteParquet(w io.Writer, records []Record) error {
	rows := make([]parquetRow, len(records))
	for i, r := range records {
		p := r.Price
		rows[i] = parquetRow{Price: &p, Date: r.Date, ProductID: r.ProductID}
	}
	return parquet.Write(w, rows)
}

// ParsePrice accepts plain decimals with an optional leading currency sign.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$₹€£")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return valid(v)
}

func valid(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// Coerce accepts a JSON number or numeric string.
func Coerce(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return valid(x)
	case string:
		return ParsePrice(x)
	default:
		return 0, false
	}
}

func str(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
