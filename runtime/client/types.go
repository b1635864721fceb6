package client

// Wire DTOs for the server's JSON envelopes.

// queryRequest is the body of a streaming query POST.
type queryRequest struct {
	SQL        string            `json:"sql"`
	Properties map[string]string `json:"properties,omitempty"`
}

// streamedHeader is the first JSON value of a streamed response.
type streamedHeader struct {
	QueryID     string   `json:"queryId"`
	ColumnNames []string `json:"columnNames"`
	ColumnTypes []string `json:"columnTypes"`
}

// Column is one name/type pair of a result schema, with a fixed
// ordinal position.
type Column struct {
	Name    string
	Type    string
	Ordinal int
}

// ColumnSchema is the ordered column schema of one execution. Derived
// once from the header value and shared read-only by every row
// conversion in that execution.
type ColumnSchema struct {
	Columns []Column
}

// Len returns the number of columns.
func (s *ColumnSchema) Len() int { return len(s.Columns) }

// statementRequest is the body of an administrative statement POST.
type statementRequest struct {
	SQL        string            `json:"sql"`
	Properties map[string]string `json:"streamsProperties,omitempty"`
}

// StatementResponse is the envelope of an administrative statement
// result.
type StatementResponse struct {
	StatementText string `json:"statementText"`
	CommandID     string `json:"commandId,omitempty"`
	CommandStatus struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"commandStatus"`
}

// StreamInfo describes one registered stream or table.
type StreamInfo struct {
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	KeyFormat   string `json:"keyFormat"`
	ValueFormat string `json:"valueFormat"`
	Windowed    bool   `json:"isWindowed"`
}

// listStreamsResponse is the envelope of SHOW STREAMS / SHOW TABLES.
type listStreamsResponse struct {
	Streams []StreamInfo `json:"streams"`
	Tables  []StreamInfo `json:"tables"`
}

// QueryInfo describes one running server-side query.
type QueryInfo struct {
	ID        string   `json:"id"`
	QueryText string   `json:"queryString"`
	Sinks     []string `json:"sinks"`
	State     string   `json:"state"`
}

// listQueriesResponse is the envelope of SHOW QUERIES.
type listQueriesResponse struct {
	Queries []QueryInfo `json:"queries"`
}

// Info describes the server build.
type Info struct {
	Version   string `json:"version"`
	ClusterID string `json:"clusterId"`
	ServiceID string `json:"serviceId"`
}

type infoResponse struct {
	Info Info `json:"serverInfo"`
}

// serverErrorBody is the envelope of a non-success response.
type serverErrorBody struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}
