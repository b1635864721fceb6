package client_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql-go/runtime/client"
)

func testSchema(columns ...client.Column) *client.ColumnSchema {
	for i := range columns {
		columns[i].Ordinal = i
	}
	return &client.ColumnSchema{Columns: columns}
}

type orderRecord struct {
	ID     int64    `ksql:"ORDER_ID"`
	Name   string   `ksql:"NAME"`
	Amount float64  `ksql:"AMOUNT"`
	Tags   []string `ksql:"TAGS"`
}

func TestMaterialize_RoundTrip(t *testing.T) {
	schema := testSchema(
		client.Column{Name: "ORDER_ID", Type: "BIGINT"},
		client.Column{Name: "NAME", Type: "VARCHAR"},
		client.Column{Name: "AMOUNT", Type: "DOUBLE"},
		client.Column{Name: "TAGS", Type: "ARRAY<VARCHAR>"},
	)
	row := []interface{}{
		json.Number("42"),
		"first",
		json.Number("9.5"),
		[]interface{}{"a", "b"},
	}

	record, err := client.Materialize[orderRecord](schema, row)
	require.NoError(t, err)
	assert.Equal(t, orderRecord{
		ID:     42,
		Name:   "first",
		Amount: 9.5,
		Tags:   []string{"a", "b"},
	}, record)
}

func TestMaterialize_PointerTarget(t *testing.T) {
	schema := testSchema(
		client.Column{Name: "ORDER_ID", Type: "BIGINT"},
		client.Column{Name: "NAME", Type: "VARCHAR"},
		client.Column{Name: "AMOUNT", Type: "DOUBLE"},
		client.Column{Name: "TAGS", Type: "ARRAY<VARCHAR>"},
	)
	row := []interface{}{json.Number("7"), "pointer", json.Number("1.5"), nil}

	record, err := client.Materialize[*orderRecord](schema, row)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, orderRecord{ID: 7, Name: "pointer", Amount: 1.5}, *record)
}

func TestMaterialize_NumericWidening(t *testing.T) {
	type rec struct {
		Value float64 `ksql:"VALUE"`
	}
	schema := testSchema(client.Column{Name: "VALUE", Type: "INTEGER"})

	record, err := client.Materialize[rec](schema, []interface{}{json.Number("7")})
	require.NoError(t, err)
	assert.Equal(t, 7.0, record.Value)
}

func TestMaterialize_NarrowingFails(t *testing.T) {
	type rec struct {
		Value int64 `ksql:"VALUE"`
	}
	schema := testSchema(client.Column{Name: "VALUE", Type: "DOUBLE"})

	_, err := client.Materialize[rec](schema, []interface{}{json.Number("3.5")})
	require.Error(t, err)

	var conversion *client.ConversionError
	require.ErrorAs(t, err, &conversion)
	assert.Equal(t, "VALUE", conversion.Column)
}

func TestMaterialize_IntegerOverflowFails(t *testing.T) {
	type rec struct {
		Value int8 `ksql:"VALUE"`
	}
	schema := testSchema(client.Column{Name: "VALUE", Type: "INTEGER"})

	_, err := client.Materialize[rec](schema, []interface{}{json.Number("300")})
	var conversion *client.ConversionError
	require.ErrorAs(t, err, &conversion)
}

func TestMaterialize_NestedContainers(t *testing.T) {
	type address struct {
		City string `ksql:"CITY"`
		Zip  string `ksql:"ZIP"`
	}
	type rec struct {
		Address address            `ksql:"ADDRESS"`
		Scores  map[string]float64 `ksql:"SCORES"`
		Blob    []byte             `ksql:"BLOB"`
	}
	schema := testSchema(
		client.Column{Name: "ADDRESS", Type: "STRUCT<CITY VARCHAR, ZIP VARCHAR>"},
		client.Column{Name: "SCORES", Type: "MAP<VARCHAR, DOUBLE>"},
		client.Column{Name: "BLOB", Type: "BYTES"},
	)
	row := []interface{}{
		map[string]interface{}{"CITY": "Oslo", "ZIP": "0150"},
		map[string]interface{}{"a": json.Number("1.5")},
		"aGVsbG8=", // "hello"
	}

	record, err := client.Materialize[rec](schema, row)
	require.NoError(t, err)
	assert.Equal(t, "Oslo", record.Address.City)
	assert.Equal(t, "0150", record.Address.Zip)
	assert.Equal(t, map[string]float64{"a": 1.5}, record.Scores)
	assert.Equal(t, []byte("hello"), record.Blob)
}

func TestMaterialize_TimestampFormats(t *testing.T) {
	type rec struct {
		At time.Time `ksql:"AT"`
	}

	schema := testSchema(client.Column{Name: "AT", Type: "TIMESTAMP"})

	record, err := client.Materialize[rec](schema, []interface{}{"2025-06-01T12:30:00.000"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), record.At)

	record, err = client.Materialize[rec](schema, []interface{}{json.Number("1748780000000")})
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1748780000000).UTC(), record.At)
}

func TestMaterialize_NullLeavesZeroValue(t *testing.T) {
	schema := testSchema(
		client.Column{Name: "ORDER_ID", Type: "BIGINT"},
		client.Column{Name: "NAME", Type: "VARCHAR"},
		client.Column{Name: "AMOUNT", Type: "DOUBLE"},
		client.Column{Name: "TAGS", Type: "ARRAY<VARCHAR>"},
	)
	row := []interface{}{json.Number("1"), nil, nil, nil}

	record, err := client.Materialize[orderRecord](schema, row)
	require.NoError(t, err)
	assert.Equal(t, orderRecord{ID: 1}, record)
}

func TestMaterialize_UnmappableColumnFailsWholeRow(t *testing.T) {
	schema := testSchema(
		client.Column{Name: "ORDER_ID", Type: "BIGINT"},
		client.Column{Name: "SURPRISE", Type: "VARCHAR"},
	)
	type rec struct {
		ID int64 `ksql:"ORDER_ID"`
	}

	_, err := client.Materialize[rec](schema, []interface{}{json.Number("1"), "x"})
	var conversion *client.ConversionError
	require.ErrorAs(t, err, &conversion)
	assert.Equal(t, "SURPRISE", conversion.Column)
}

func TestMaterialize_TypeMismatchFails(t *testing.T) {
	type rec struct {
		Name string `ksql:"NAME"`
	}
	schema := testSchema(client.Column{Name: "NAME", Type: "VARCHAR"})

	_, err := client.Materialize[rec](schema, []interface{}{json.Number("5")})
	var conversion *client.ConversionError
	require.ErrorAs(t, err, &conversion)
}
