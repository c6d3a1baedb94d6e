package record

import (
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Decode maps rec onto out, a pointer to a struct whose fields are tagged `record:"field_name"`.
func Decode(rec Record, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "record",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToStringHook,
			timeHook,
		),
	})
	if err != nil {
		return errors.Wrap(err, "creating decoder")
	}
	if err := dec.Decode(map[string]interface{}(rec)); err != nil {
		return errors.Wrap(err, "decoding record")
	}
	return nil
}

// DecodeAll decodes every record into a T.
func DecodeAll[T any](recs []Record) ([]T, error) {
	items := make([]T, 0, len(recs))
	for _, rec := range recs {
		var item T
		if err := Decode(rec, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func bytesToStringHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if b, ok := data.([]byte); ok && from.Kind() == reflect.Slice {
		return string(b), nil
	}
	return data, nil
}

func timeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, errors.Errorf("cannot parse %q as time", v)
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case nil:
		return time.Time{}, nil
	}
	return data, nil
}

// Int returns the integer value of a numeric field (aggregates may come back as int, int64, float64 or text).
func Int(rec Record, field string) int {
	switch v := rec[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	case []byte:
		n, _ := strconv.Atoi(string(v))
		return n
	}
	return 0
}

// String returns the string value of a field.
func String(rec Record, field string) string {
	switch v := rec[field].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}
