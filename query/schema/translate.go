package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Attrs carries per-field type attributes that influence translation.
type Attrs struct {
	Precision int
	Scale     int
}

// UnsupportedTypeError reports a Go type with no column type mapping.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("schema: no column type mapping for %s", e.Type)
}

var timeType = reflect.TypeOf(time.Time{})

// TranslateType maps a Go type to column type text. Containers recurse:
// slices become ARRAY<inner>, maps become MAP<key, value>, nested
// structs become STRUCT<field type, ...>. Precision attributes turn
// floating-point fields into DECIMAL(p, s). The mapping is
// deterministic: the same type and attributes always yield the same
// text.
func TranslateType(t reflect.Type, attrs Attrs) (string, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == timeType {
		return "TIMESTAMP", nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return "BOOLEAN", nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int:
		return "INTEGER", nil
	case reflect.Int64:
		return "BIGINT", nil
	case reflect.Float32, reflect.Float64:
		if attrs.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d, %d)", attrs.Precision, attrs.Scale), nil
		}
		return "DOUBLE", nil
	case reflect.String:
		return "VARCHAR", nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return "BYTES", nil
		}
		inner, err := TranslateType(t.Elem(), Attrs{})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ARRAY<%s>", inner), nil
	case reflect.Map:
		key, err := TranslateType(t.Key(), Attrs{})
		if err != nil {
			return "", err
		}
		val, err := TranslateType(t.Elem(), Attrs{})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("MAP<%s, %s>", key, val), nil
	case reflect.Struct:
		return translateStruct(t)
	default:
		return "", &UnsupportedTypeError{Type: t}
	}
}

func translateStruct(t reflect.Type) (string, error) {
	s, err := Of(t)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("STRUCT<")
	for i, f := range s.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		inner, err := TranslateType(f.Type, f.Attrs())
		if err != nil {
			return "", err
		}
		sb.WriteString(strings.ToUpper(f.Column))
		sb.WriteString(" ")
		sb.WriteString(inner)
	}
	sb.WriteString(">")
	return sb.String(), nil
}
