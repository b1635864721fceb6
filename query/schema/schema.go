// Package schema precomputes column descriptors for record types and
// translates Go types to column type text.
package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Field describes one column-mapped field of a record type.
type Field struct {
	Name      string // Go field name
	Column    string // declared column name (tag override or field name)
	Index     []int  // reflect field index path
	Type      reflect.Type
	Precision int // decimal precision, 0 when unset
	Scale     int // decimal scale
}

// Attrs returns the field's type attributes for translation.
func (f Field) Attrs() Attrs {
	return Attrs{Precision: f.Precision, Scale: f.Scale}
}

// StructSchema is the precomputed descriptor for a record type. Built
// once per type and shared read-only by every compile and materialize
// call thereafter.
type StructSchema struct {
	Type     reflect.Type
	Fields   []Field
	byColumn map[string]int // upper-cased column name -> field ordinal
}

// FieldByColumn resolves a column name to its field, matching the
// declared name case-insensitively.
func (s *StructSchema) FieldByColumn(column string) (Field, bool) {
	i, ok := s.byColumn[strings.ToUpper(column)]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]*StructSchema{}
)

// Of returns the schema for the given record type, building and caching
// it on first use. The cache is safe for concurrent use.
func Of(t reflect.Type) (*StructSchema, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	registryMu.RLock()
	s, ok := registry[t]
	registryMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := build(t)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	registry[t] = s
	registryMu.Unlock()
	return s, nil
}

func build(t reflect.Type) (*StructSchema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct type", t)
	}

	s := &StructSchema{
		Type:     t,
		byColumn: map[string]int{},
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}

		f := Field{
			Name:   sf.Name,
			Column: sf.Name,
			Index:  sf.Index,
			Type:   sf.Type,
		}

		if tag, ok := sf.Tag.Lookup("ksql"); ok {
			if tag == "-" {
				continue
			}
			if err := parseTag(tag, &f); err != nil {
				return nil, fmt.Errorf("schema: field %s.%s: %w", t.Name(), sf.Name, err)
			}
		}

		s.byColumn[strings.ToUpper(f.Column)] = len(s.Fields)
		s.Fields = append(s.Fields, f)
	}

	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("schema: %s has no mappable fields", t)
	}
	return s, nil
}

// parseTag parses a `ksql:"name,precision=10,scale=2"` struct tag.
func parseTag(tag string, f *Field) error {
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		f.Column = parts[0]
	}
	for _, opt := range parts[1:] {
		key, val, found := strings.Cut(opt, "=")
		if !found {
			return fmt.Errorf("malformed tag option %q", opt)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("tag option %q: %w", opt, err)
		}
		switch key {
		case "precision":
			f.Precision = n
		case "scale":
			f.Scale = n
		default:
			return fmt.Errorf("unknown tag option %q", key)
		}
	}
	return nil
}
