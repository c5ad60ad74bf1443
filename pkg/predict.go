package pkg

import (
	"encoding/json"
	"strconv"
	"strings"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

// ParseRecord converts submitted values to a record over fs. Numbers, numeric strings
// and booleans are accepted; binary columns also take "Yes" and "No". Keys outside
// fs are ignored.
func ParseRecord(fs model.FeatureSet, values map[string]interface{}) (model.Record, error) {
	record := make(model.Record, fs.Size())
	mismatch := &model.SchemaMismatchError{}
	for _, name := range fs.Names {
		raw, ok := values[name]
		if !ok || raw == nil {
			mismatch.Missing = append(mismatch.Missing, name)
			continue
		}
		value, ok := toFloat(name, raw)
		if !ok {
			mismatch.Invalid = append(mismatch.Invalid, name)
			continue
		}
		record[name] = value
	}
	if len(mismatch.Missing) > 0 || len(mismatch.Invalid) > 0 {
		return nil, mismatch
	}
	return record, nil
}

func toFloat(name string, raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if model.IsBinaryColumn(name) {
			if f, err := io.MapBinary(name, s); err == nil {
				return f, true
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
