package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/streamql/streamql-go/internal/debug"
	"github.com/streamql/streamql-go/query/builder"
)

// AcceptStreaming is the negotiated streaming response format: a
// sequence of newline-delimited JSON values, a header first and one
// value per row after it.
const AcceptStreaming = "application/vnd.streamql.delimited.v1+json"

// RowStream is one streaming execution. It owns its connection; rows
// are read incrementally and the full body is never held in memory.
// A RowStream is confined to the goroutine that reads it.
type RowStream struct {
	queryID   string
	commandID string
	schema    *ColumnSchema
	ctx       context.Context
	body      io.ReadCloser
	dec       *json.Decoder
	closed    bool
}

// Execute opens one streaming execution of the statement. The first
// value of the response yields the column schema; Next delivers the
// rows. Cancelling ctx closes the connection promptly.
func (c *Client) Execute(ctx context.Context, stmt *builder.Statement) (*RowStream, error) {
	payload, err := json.Marshal(queryRequest{SQL: stmt.SQL, Properties: c.properties})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+queryPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", stmt.ContentType)
	req.Header.Set("Accept", AcceptStreaming)

	// Correlates this execution in server logs and error text.
	commandID := uuid.NewString()
	req.Header.Set("X-Command-ID", commandID)
	debug.Debug("executing streaming query", "commandId", commandID, "sql", stmt.SQL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, &NetworkError{Op: "execute", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readServerError(resp)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	rs := &RowStream{
		commandID: commandID,
		ctx:       ctx,
		body:      resp.Body,
		dec:       dec,
	}
	if err := rs.readHeader(); err != nil {
		rs.Close()
		return nil, err
	}
	return rs, nil
}

// readHeader consumes the first value and derives the column schema.
func (rs *RowStream) readHeader() error {
	var raw json.RawMessage
	if err := rs.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return &ProtocolError{Msg: "response ended before header value"}
		}
		return rs.streamError(err, "header")
	}
	if len(raw) == 0 || raw[0] != '{' {
		return &ProtocolError{Msg: "first response value is not a header object"}
	}

	var header streamedHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return &ProtocolError{Msg: "malformed header value: " + err.Error()}
	}
	if len(header.ColumnNames) == 0 {
		return &ProtocolError{QueryID: header.QueryID, Msg: "header declares no columns"}
	}
	if len(header.ColumnNames) != len(header.ColumnTypes) {
		return &ProtocolError{QueryID: header.QueryID, Msg: "header column names and types disagree"}
	}

	columns := make([]Column, len(header.ColumnNames))
	for i, name := range header.ColumnNames {
		columns[i] = Column{Name: name, Type: header.ColumnTypes[i], Ordinal: i}
	}
	rs.queryID = header.QueryID
	rs.schema = &ColumnSchema{Columns: columns}
	debug.Debug("stream opened", "queryId", rs.queryID, "commandId", rs.commandID, "columns", len(columns))
	return nil
}

// Schema returns the column schema for this execution.
func (rs *RowStream) Schema() *ColumnSchema { return rs.schema }

// QueryID returns the server-assigned query ID, empty for pull queries.
func (rs *RowStream) QueryID() string { return rs.queryID }

// Next returns the next row in server order. It returns io.EOF when
// the server signals end of stream, ErrCancelled after the context is
// cancelled, and a ProtocolError for any malformed or mis-sized row.
func (rs *RowStream) Next() ([]interface{}, error) {
	if err := rs.ctx.Err(); err != nil {
		return nil, ErrCancelled
	}

	var raw json.RawMessage
	if err := rs.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, rs.streamError(err, "row")
	}

	// A row arriving after cancellation is discarded, not delivered.
	if rs.ctx.Err() != nil {
		return nil, ErrCancelled
	}

	if len(raw) == 0 || raw[0] != '[' {
		return nil, &ProtocolError{QueryID: rs.queryID, Msg: "row value is not an array"}
	}

	rowDec := json.NewDecoder(bytes.NewReader(raw))
	rowDec.UseNumber()
	var values []interface{}
	if err := rowDec.Decode(&values); err != nil {
		return nil, &ProtocolError{QueryID: rs.queryID, Msg: "malformed row value: " + err.Error()}
	}

	if len(values) != rs.schema.Len() {
		return nil, &ProtocolError{
			QueryID: rs.queryID,
			Msg:     fmt.Sprintf("row has %d values for %d columns", len(values), rs.schema.Len()),
		}
	}
	return values, nil
}

// streamError classifies a read failure: cancellation first, then
// syntax problems as protocol errors, everything else as network.
func (rs *RowStream) streamError(err error, during string) error {
	if rs.ctx.Err() != nil {
		return ErrCancelled
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return &ProtocolError{QueryID: rs.queryID, Msg: "malformed " + during + " value: " + err.Error()}
	}
	return &NetworkError{Op: "read " + during, Err: err}
}

// Close releases the connection. Safe to call more than once.
func (rs *RowStream) Close() error {
	if rs.closed {
		return nil
	}
	rs.closed = true
	return rs.body.Close()
}
