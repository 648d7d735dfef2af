package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Field is one key/value pair in an export record.
type Field struct {
	Key   string
	Value any
}

// Record is one flat export row. Field order is significant: it drives CSV
// column order and JSON key order, so all records of a data type must share
// the same shape.
type Record []Field

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON encodes the record as an object preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CSVRow renders every field as a CSV cell.
func (r Record) CSVRow() []string {
	row := make([]string, len(r))
	for i, f := range r {
		row[i] = formatValue(f.Value)
	}
	return row
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
