package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql-go/query/builder"
	"github.com/streamql/streamql-go/query/parse"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want builder.StatementKind
	}{
		{
			name: "push query",
			sql:  "SELECT * FROM orders EMIT CHANGES;",
			want: builder.KindPushQuery,
		},
		{
			name: "pull query",
			sql:  "SELECT REGION, AMOUNT FROM orders WHERE AMOUNT > 10;",
			want: builder.KindPullQuery,
		},
		{
			name: "lowercase push query",
			sql:  "select * from orders emit changes;",
			want: builder.KindPushQuery,
		},
		{
			name: "emit changes inside a string literal does not count",
			sql:  "SELECT * FROM orders WHERE NOTE = 'EMIT CHANGES';",
			want: builder.KindPullQuery,
		},
		{
			name: "create statement",
			sql:  "CREATE STREAM s (ID BIGINT) WITH (KAFKA_TOPIC='t', VALUE_FORMAT='JSON');",
			want: builder.KindStatement,
		},
		{
			name: "show statement",
			sql:  "SHOW STREAMS;",
			want: builder.KindStatement,
		},
		{
			name: "terminate statement",
			sql:  "TERMINATE CSAS_ORDERS_1;",
			want: builder.KindStatement,
		},
		{
			name: "leading comment is skipped",
			sql:  "-- continuous view\nSELECT * FROM orders EMIT CHANGES;",
			want: builder.KindPushQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := parse.Classify(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestClassify_Errors(t *testing.T) {
	_, err := parse.Classify("")
	assert.Error(t, err)

	_, err = parse.Classify("   -- nothing here")
	assert.Error(t, err)

	_, err = parse.Classify("UPSERT INTO t VALUES (1);")
	assert.Error(t, err)
}
