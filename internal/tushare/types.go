package tushare

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Request is the body of every Tushare Pro call.
type Request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// Response is the envelope returned by every Tushare Pro call.
type Response struct {
	RequestID string `json:"request_id"`
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Data      *Table `json:"data"`
}

// Table is the positional result set: column names plus rows of values.
type Table struct {
	Fields  []string `json:"fields"`
	Items   [][]any  `json:"items"`
	HasMore bool     `json:"has_more"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Items)
}

// Rows returns name-addressable views over the items.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	idx := make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		idx[f] = i
	}
	rows := make([]Row, len(t.Items))
	for i, item := range t.Items {
		rows[i] = Row{idx: idx, vals: item}
	}
	return rows
}

// Row is one provider record.
type Row struct {
	idx  map[string]int
	vals []any
}

func (r Row) value(field string) any {
	i, ok := r.idx[field]
	if !ok || i >= len(r.vals) {
		return nil
	}
	return r.vals[i]
}

// Str returns the field as text; null or missing fields are "".
func (r Row) Str(field string) string {
	switch v := r.value(field).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Decimal returns the field as a nullable decimal. Null, missing and empty
// fields are Valid=false; anything else that fails to parse is an error.
func (r Row) Decimal(field string) (decimal.NullDecimal, error) {
	var raw string
	switch v := r.value(field).(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v)), nil
	default:
		return decimal.NullDecimal{}, fmt.Errorf("field %s: unexpected type %T", field, v)
	}
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("field %s: %w", field, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// RequiredDecimal is Decimal for fields that must be present.
func (r Row) RequiredDecimal(field string) (decimal.Decimal, error) {
	d, err := r.Decimal(field)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.Valid {
		return decimal.Zero, fmt.Errorf("field %s: missing", field)
	}
	return d.Decimal, nil
}

// Int returns the integral part of a numeric field; null counts as zero.
// Volumes are published as floats ("12345.0").
func (r Row) Int(field string) (int64, error) {
	if n, ok := r.value(field).(json.Number); ok {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return i, nil
		}
	}
	d, err := r.Decimal(field)
	if err != nil {
		return 0, err
	}
	if !d.Valid {
		return 0, nil
	}
	return d.Decimal.IntPart(), nil
}
