// Package client provides the runtime client for StreamQL servers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/streamql/streamql-go/internal/debug"
)

// MinServerVersion is the oldest server this client speaks to.
const MinServerVersion = "0.24.0"

const (
	statementPath = "/statement"
	queryPath     = "/query-stream"
	infoPath      = "/info"
)

// Client is the StreamQL client. It is safe for concurrent use: every
// execution opens its own connection and no state is shared between
// executions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	properties map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Streaming executions
// hold connections open indefinitely, so the client must not carry an
// overall request timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithProperty sets a per-query server property sent with every
// streaming execution, such as auto.offset.reset.
func WithProperty(name, value string) Option {
	return func(c *Client) { c.properties[name] = value }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		properties: map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect verifies the server is reachable and its version is
// supported.
func (c *Client) Connect(ctx context.Context) error {
	info, err := c.ServerInfo(ctx)
	if err != nil {
		return err
	}

	server, err := goversion.NewVersion(info.Version)
	if err != nil {
		// Dev builds report non-semver versions; accept them.
		return nil
	}
	min := goversion.Must(goversion.NewVersion(MinServerVersion))
	if server.LessThan(min) {
		return fmt.Errorf("server version %s is older than minimum supported %s", info.Version, MinServerVersion)
	}
	return nil
}

// ServerInfo fetches the server build information.
func (c *Client) ServerInfo(ctx context.Context) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+infoPath, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "info", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readServerError(resp)
	}

	var envelope infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &ProtocolError{Msg: "malformed info response: " + err.Error()}
	}
	return &envelope.Info, nil
}

// ExecuteStatement runs a one-shot administrative statement.
func (c *Client) ExecuteStatement(ctx context.Context, sql string) (*StatementResponse, error) {
	debug.Debug("executing statement", "sql", sql)
	body, err := json.Marshal(statementRequest{SQL: sql, Properties: c.properties})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+statementPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "statement", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readServerError(resp)
	}

	var result StatementResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ProtocolError{Msg: "malformed statement response: " + err.Error()}
	}
	return &result, nil
}

// CreateStream registers a stream over a topic with the given schema
// text, e.g. "ID BIGINT KEY, NAME VARCHAR".
func (c *Client) CreateStream(ctx context.Context, name, schema, topic, format string) error {
	sql := fmt.Sprintf("CREATE STREAM %s (%s) WITH (KAFKA_TOPIC='%s', VALUE_FORMAT='%s');",
		name, schema, topic, format)
	_, err := c.ExecuteStatement(ctx, sql)
	return err
}

// DropStream removes a stream registration.
func (c *Client) DropStream(ctx context.Context, name string, ifExists bool) error {
	clause := ""
	if ifExists {
		clause = "IF EXISTS "
	}
	_, err := c.ExecuteStatement(ctx, fmt.Sprintf("DROP STREAM %s%s;", clause, name))
	return err
}

// CreateTable registers a table over a topic with the given schema
// text.
func (c *Client) CreateTable(ctx context.Context, name, schema, topic, format string) error {
	sql := fmt.Sprintf("CREATE TABLE %s (%s) WITH (KAFKA_TOPIC='%s', VALUE_FORMAT='%s');",
		name, schema, topic, format)
	_, err := c.ExecuteStatement(ctx, sql)
	return err
}

// DropTable removes a table registration.
func (c *Client) DropTable(ctx context.Context, name string, ifExists bool) error {
	clause := ""
	if ifExists {
		clause = "IF EXISTS "
	}
	_, err := c.ExecuteStatement(ctx, fmt.Sprintf("DROP TABLE %s%s;", clause, name))
	return err
}

// ListStreams returns the registered streams.
func (c *Client) ListStreams(ctx context.Context) ([]StreamInfo, error) {
	var envelope listStreamsResponse
	if err := c.statementInto(ctx, "SHOW STREAMS;", &envelope); err != nil {
		return nil, err
	}
	return envelope.Streams, nil
}

// ListTables returns the registered tables.
func (c *Client) ListTables(ctx context.Context) ([]StreamInfo, error) {
	var envelope listStreamsResponse
	if err := c.statementInto(ctx, "SHOW TABLES;", &envelope); err != nil {
		return nil, err
	}
	return envelope.Tables, nil
}

// ListQueries returns the queries running on the server.
func (c *Client) ListQueries(ctx context.Context) ([]QueryInfo, error) {
	var envelope listQueriesResponse
	if err := c.statementInto(ctx, "SHOW QUERIES;", &envelope); err != nil {
		return nil, err
	}
	return envelope.Queries, nil
}

// TerminateQuery stops a continuous query on the server. Cancelling a
// subscription tears down only the client side; a push query keeps
// running until terminated here.
func (c *Client) TerminateQuery(ctx context.Context, queryID string) error {
	_, err := c.ExecuteStatement(ctx, fmt.Sprintf("TERMINATE %s;", queryID))
	return err
}

// statementInto runs a statement and decodes its envelope into out.
func (c *Client) statementInto(ctx context.Context, sql string, out interface{}) error {
	body, err := json.Marshal(statementRequest{SQL: sql})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+statementPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "statement", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readServerError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Msg: "malformed statement response: " + err.Error()}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// readServerError drains a bounded amount of the error body.
func readServerError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var body serverErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return &ServerError{StatusCode: resp.StatusCode, Message: body.Message}
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}

// DefaultHTTPClient returns an HTTP client suitable for streaming
// executions: connect timeouts only, no overall request deadline.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}
