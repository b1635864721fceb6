package telemetry_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamql/streamql-go/telemetry"
)

// The collector is initialized once per process, so the lifecycle is
// exercised in a single test.
func TestCollectorLifecycle(t *testing.T) {
	var mu sync.Mutex
	received := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Events []telemetry.Event `json:"events"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		mu.Lock()
		received += len(payload.Events)
		mu.Unlock()
	}))
	defer server.Close()

	t.Setenv("STREAMQL_TELEMETRY_ENDPOINT", server.URL)
	telemetry.Init("test", true)
	require.True(t, telemetry.IsEnabled())

	telemetry.RecordOperation("query run", "PushQuery", 5*time.Millisecond, nil)
	telemetry.RecordOperation("query run", "Statement", time.Millisecond, errors.New("boom"))

	// Shutdown flushes the remaining batch before returning.
	telemetry.Shutdown()
	mu.Lock()
	assert.Equal(t, 2, received)
	mu.Unlock()

	assert.NotPanics(t, telemetry.Shutdown)
}
