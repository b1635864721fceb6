package subscribe_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql-go/query/builder"
	"github.com/streamql/streamql-go/runtime/client"
	"github.com/streamql/streamql-go/runtime/subscribe"
)

type tick struct {
	ID   int64  `ksql:"ID"`
	Name string `ksql:"NAME"`
}

const tickHeader = `{"queryId":"q-1","columnNames":["ID","NAME"],"columnTypes":["BIGINT","VARCHAR"]}`

func pushStatement(sql string) *builder.Statement {
	return &builder.Statement{SQL: sql, ContentType: builder.ContentType, Kind: builder.KindPushQuery}
}

// rowCollector is an observer that records everything it sees, guarded
// for inspection from the test goroutine after Done.
type rowCollector struct {
	mu        sync.Mutex
	rows      []tick
	completed int
	errs      []error
	onNext    func(tick)
}

func (c *rowCollector) OnNext(record tick) {
	c.mu.Lock()
	c.rows = append(c.rows, record)
	c.mu.Unlock()
	if c.onNext != nil {
		c.onNext(record)
	}
}

func (c *rowCollector) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *rowCollector) OnCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed++
}

func (c *rowCollector) snapshot() ([]tick, int, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tick(nil), c.rows...), c.completed, append([]error(nil), c.errs...)
}

func waitDone(t *testing.T, sub *subscribe.Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not reach a terminal state")
	}
}

func TestSubscribe_CompletesOnEndOfStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, tickHeader)
		fmt.Fprintln(w, `[1, "first"]`)
		fmt.Fprintln(w, `[2, "second"]`)
		fmt.Fprintln(w, `[3, "third"]`)
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	collector := &rowCollector{}
	sub := subscribe.Subscribe[tick](context.Background(), c, pushStatement("SELECT * FROM ticks;"), collector)
	waitDone(t, sub)

	rows, completed, errs := collector.snapshot()
	assert.Equal(t, subscribe.Completed, sub.State())
	assert.NoError(t, sub.Err())
	assert.Equal(t, 1, completed)
	assert.Empty(t, errs)
	require.Len(t, rows, 3)
	assert.Equal(t, []tick{{1, "first"}, {2, "second"}, {3, "third"}}, rows)
}

func TestSubscribe_CancelBeforeRows(t *testing.T) {
	headerSent := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, tickHeader)
		flusher.Flush()
		close(headerSent)
		// No rows; hold until the client disconnects.
		<-r.Context().Done()
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	collector := &rowCollector{}
	sub := subscribe.Subscribe[tick](context.Background(), c, pushStatement("SELECT * FROM ticks EMIT CHANGES;"), collector)

	<-headerSent
	sub.Cancel()
	waitDone(t, sub)

	rows, completed, errs := collector.snapshot()
	assert.Equal(t, subscribe.Cancelled, sub.State())
	assert.ErrorIs(t, sub.Err(), client.ErrCancelled)
	assert.Empty(t, rows)
	assert.Zero(t, completed)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], client.ErrCancelled)
}

func TestSubscribe_FaultsOnMalformedRow(t *testing.T) {
	delivered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, tickHeader)
		fmt.Fprintln(w, `[1, "first"]`)
		flusher.Flush()
		// Wrong arity; must fault the subscription.
		fmt.Fprintln(w, `[2]`)
		fmt.Fprintln(w, `[3, "never delivered"]`)
		flusher.Flush()
		<-delivered
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	collector := &rowCollector{}
	sub := subscribe.Subscribe[tick](context.Background(), c, pushStatement("SELECT * FROM ticks EMIT CHANGES;"), collector)
	waitDone(t, sub)
	close(delivered)

	rows, completed, errs := collector.snapshot()
	assert.Equal(t, subscribe.Faulted, sub.State())
	require.Len(t, errs, 1)
	var protocol *client.ProtocolError
	assert.ErrorAs(t, errs[0], &protocol)
	assert.Zero(t, completed)
	// Rows before the fault were delivered; nothing after it was.
	assert.Equal(t, []tick{{1, "first"}}, rows)
}

func TestSubscribe_FaultsOnConversionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, tickHeader)
		fmt.Fprintln(w, `[1.5, "fractional id"]`)
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	collector := &rowCollector{}
	sub := subscribe.Subscribe[tick](context.Background(), c, pushStatement("SELECT * FROM ticks EMIT CHANGES;"), collector)
	waitDone(t, sub)

	rows, _, errs := collector.snapshot()
	assert.Equal(t, subscribe.Faulted, sub.State())
	assert.Empty(t, rows)
	require.Len(t, errs, 1)
	var conversion *client.ConversionError
	assert.ErrorAs(t, errs[0], &conversion)
}

func TestSubscribe_SlowObserverGatesReads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, tickHeader)
		for i := 1; i <= 5; i++ {
			fmt.Fprintf(w, "[%d, \"row\"]\n", i)
		}
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	var inFlight, maxInFlight int32
	var mu sync.Mutex
	collector := &rowCollector{}
	collector.onNext = func(tick) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	}

	sub := subscribe.Subscribe[tick](context.Background(), c, pushStatement("SELECT * FROM ticks;"), collector)
	waitDone(t, sub)

	rows, _, _ := collector.snapshot()
	assert.Len(t, rows, 5)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), maxInFlight)
}

func TestSubscribe_IndependentSubscriptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, tickHeader)
		fmt.Fprintln(w, `[1, "a"]`)
		fmt.Fprintln(w, `[2, "b"]`)
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	stmt := pushStatement("SELECT * FROM ticks;")

	fast := &rowCollector{}
	slow := &rowCollector{onNext: func(tick) { time.Sleep(20 * time.Millisecond) }}

	fastSub := subscribe.Subscribe[tick](context.Background(), c, stmt, fast)
	slowSub := subscribe.Subscribe[tick](context.Background(), c, stmt, slow)

	waitDone(t, fastSub)
	waitDone(t, slowSub)

	fastRows, fastCompleted, _ := fast.snapshot()
	slowRows, slowCompleted, _ := slow.snapshot()
	assert.Equal(t, []tick{{1, "a"}, {2, "b"}}, fastRows)
	assert.Equal(t, []tick{{1, "a"}, {2, "b"}}, slowRows)
	assert.Equal(t, 1, fastCompleted)
	assert.Equal(t, 1, slowCompleted)
}

func TestSubscribe_FaultsWhenConnectFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, `{"message":"command runner is degraded"}`)
	}))
	defer server.Close()

	c := client.NewClient(server.URL)
	collector := &rowCollector{}
	sub := subscribe.Subscribe[tick](context.Background(), c, pushStatement("SELECT 1;"), collector)
	waitDone(t, sub)

	_, _, errs := collector.snapshot()
	assert.Equal(t, subscribe.Faulted, sub.State())
	require.Len(t, errs, 1)
	var serverErr *client.ServerError
	assert.ErrorAs(t, errs[0], &serverErr)
}

func TestState_TerminalClassification(t *testing.T) {
	assert.False(t, subscribe.Created.Terminal())
	assert.False(t, subscribe.Active.Terminal())
	assert.True(t, subscribe.Completed.Terminal())
	assert.True(t, subscribe.Faulted.Terminal())
	assert.True(t, subscribe.Cancelled.Terminal())
	assert.Equal(t, "Cancelled", subscribe.Cancelled.String())
}
