package schema_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql-go/query/schema"
)

type order struct {
	ID       int64   `ksql:"ORDER_ID"`
	Amount   float64 `ksql:"AMOUNT,precision=10,scale=2"`
	Customer string
	internal string // unexported, never mapped
	Skipped  bool   `ksql:"-"`
}

func TestOf_TagParsing(t *testing.T) {
	s, err := schema.Of(reflect.TypeOf(order{}))
	require.NoError(t, err)

	require.Len(t, s.Fields, 3)
	assert.Equal(t, "ORDER_ID", s.Fields[0].Column)
	assert.Equal(t, "AMOUNT", s.Fields[1].Column)
	assert.Equal(t, 10, s.Fields[1].Precision)
	assert.Equal(t, 2, s.Fields[1].Scale)
	assert.Equal(t, "Customer", s.Fields[2].Column)
}

func TestOf_FieldByColumnIsCaseInsensitive(t *testing.T) {
	s, err := schema.Of(reflect.TypeOf(order{}))
	require.NoError(t, err)

	f, ok := s.FieldByColumn("order_id")
	require.True(t, ok)
	assert.Equal(t, "ID", f.Name)

	f, ok = s.FieldByColumn("CUSTOMER")
	require.True(t, ok)
	assert.Equal(t, "Customer", f.Name)

	_, ok = s.FieldByColumn("SKIPPED")
	assert.False(t, ok)

	_, ok = s.FieldByColumn("INTERNAL")
	assert.False(t, ok)
}

func TestOf_CachesPerType(t *testing.T) {
	first, err := schema.Of(reflect.TypeOf(order{}))
	require.NoError(t, err)
	second, err := schema.Of(reflect.TypeOf(&order{}))
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestOf_RejectsNonStructs(t *testing.T) {
	_, err := schema.Of(reflect.TypeOf(42))
	assert.Error(t, err)
}

func TestOf_MalformedTag(t *testing.T) {
	type bad struct {
		A int `ksql:"A,precision=ten"`
	}
	_, err := schema.Of(reflect.TypeOf(bad{}))
	assert.Error(t, err)
}
