package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/streamql/streamql-go/query/schema"
)

// Materialize converts one row's positional column values into a typed
// record using the execution's column schema. Columns map to fields by
// declared column name, case-insensitively. Numeric widening is
// allowed; any narrowing that would lose precision fails the whole row.
// No partial records: the first unmappable column fails the row.
func Materialize[T any](colSchema *ColumnSchema, row []interface{}) (T, error) {
	var result T

	val := reflect.ValueOf(&result).Elem()
	for val.Kind() == reflect.Ptr {
		val.Set(reflect.New(val.Type().Elem()))
		val = val.Elem()
	}
	recordSchema, err := schema.Of(val.Type())
	if err != nil {
		return result, err
	}

	if len(row) != colSchema.Len() {
		return result, &ProtocolError{
			Msg: fmt.Sprintf("row has %d values for %d columns", len(row), colSchema.Len()),
		}
	}

	for _, col := range colSchema.Columns {
		field, ok := recordSchema.FieldByColumn(col.Name)
		if !ok {
			return result, &ConversionError{
				Column: col.Name,
				Value:  row[col.Ordinal],
				Target: val.Type().String(),
			}
		}
		dst := val.FieldByIndex(field.Index)
		if err := assign(dst, row[col.Ordinal], col.Name); err != nil {
			var zero T
			return zero, err
		}
	}
	return result, nil
}

var timeType = reflect.TypeOf(time.Time{})

// assign places a raw column value into dst, recursing into containers
// and nested records.
func assign(dst reflect.Value, raw interface{}, column string) error {
	if raw == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return assign(dst.Elem(), raw, column)
	}

	if dst.Type() == timeType {
		return assignTime(dst, raw, column)
	}

	switch dst.Kind() {
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return conversionError(column, raw, dst)
		}
		dst.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return assignInt(dst, raw, column)

	case reflect.Float32, reflect.Float64:
		return assignFloat(dst, raw, column)

	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return conversionError(column, raw, dst)
		}
		dst.SetString(s)
		return nil

	case reflect.Slice:
		return assignSlice(dst, raw, column)

	case reflect.Map:
		return assignMap(dst, raw, column)

	case reflect.Struct:
		return assignStruct(dst, raw, column)

	case reflect.Interface:
		if dst.NumMethod() == 0 {
			dst.Set(reflect.ValueOf(raw))
			return nil
		}
		return conversionError(column, raw, dst)

	default:
		return conversionError(column, raw, dst)
	}
}

func assignInt(dst reflect.Value, raw interface{}, column string) error {
	num, ok := raw.(json.Number)
	if !ok {
		return conversionError(column, raw, dst)
	}
	// Int64 fails on fractional values: that narrowing loses
	// precision, so the row fails rather than truncates.
	n, err := num.Int64()
	if err != nil {
		return conversionError(column, raw, dst)
	}
	if dst.OverflowInt(n) {
		return conversionError(column, raw, dst)
	}
	dst.SetInt(n)
	return nil
}

func assignFloat(dst reflect.Value, raw interface{}, column string) error {
	num, ok := raw.(json.Number)
	if !ok {
		return conversionError(column, raw, dst)
	}
	f, err := num.Float64()
	if err != nil {
		return conversionError(column, raw, dst)
	}
	if dst.OverflowFloat(f) {
		return conversionError(column, raw, dst)
	}
	dst.SetFloat(f)
	return nil
}

func assignTime(dst reflect.Value, raw interface{}, column string) error {
	switch v := raw.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return conversionError(column, raw, dst)
	case json.Number:
		// Epoch milliseconds.
		ms, err := v.Int64()
		if err != nil {
			return conversionError(column, raw, dst)
		}
		dst.Set(reflect.ValueOf(time.UnixMilli(ms).UTC()))
		return nil
	default:
		return conversionError(column, raw, dst)
	}
}

func assignSlice(dst reflect.Value, raw interface{}, column string) error {
	if dst.Type().Elem().Kind() == reflect.Uint8 {
		s, ok := raw.(string)
		if !ok {
			return conversionError(column, raw, dst)
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return conversionError(column, raw, dst)
		}
		dst.SetBytes(data)
		return nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		return conversionError(column, raw, dst)
	}
	out := reflect.MakeSlice(dst.Type(), len(items), len(items))
	for i, item := range items {
		if err := assign(out.Index(i), item, column); err != nil {
			return err
		}
	}
	dst.Set(out)
	return nil
}

func assignMap(dst reflect.Value, raw interface{}, column string) error {
	if dst.Type().Key().Kind() != reflect.String {
		return conversionError(column, raw, dst)
	}
	entries, ok := raw.(map[string]interface{})
	if !ok {
		return conversionError(column, raw, dst)
	}
	out := reflect.MakeMapWithSize(dst.Type(), len(entries))
	for key, value := range entries {
		elem := reflect.New(dst.Type().Elem()).Elem()
		if err := assign(elem, value, column); err != nil {
			return err
		}
		out.SetMapIndex(reflect.ValueOf(key).Convert(dst.Type().Key()), elem)
	}
	dst.Set(out)
	return nil
}

func assignStruct(dst reflect.Value, raw interface{}, column string) error {
	entries, ok := raw.(map[string]interface{})
	if !ok {
		return conversionError(column, raw, dst)
	}
	nested, err := schema.Of(dst.Type())
	if err != nil {
		return err
	}
	for key, value := range entries {
		field, ok := nested.FieldByColumn(key)
		if !ok {
			return &ConversionError{Column: column + "." + key, Value: value, Target: dst.Type().String()}
		}
		if err := assign(dst.FieldByIndex(field.Index), value, column+"."+key); err != nil {
			return err
		}
	}
	return nil
}

func conversionError(column string, raw interface{}, dst reflect.Value) error {
	return &ConversionError{Column: column, Value: raw, Target: dst.Type().String()}
}
