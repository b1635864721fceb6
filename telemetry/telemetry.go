// Package telemetry provides opt-in usage telemetry for streamql-go.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"
)

// Event is one telemetry record.
type Event struct {
	EventType     string         `json:"event_type"`
	Operation     string         `json:"operation,omitempty"`
	StatementKind string         `json:"statement_kind,omitempty"`
	Duration      *time.Duration `json:"duration,omitempty"`
	Error         string         `json:"error,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Version       string         `json:"version"`
	OS            string         `json:"os"`
	Architecture  string         `json:"architecture"`
}

// Collector batches events and flushes them in the background.
type Collector struct {
	enabled       bool
	endpoint      string
	events        []Event
	mu            sync.Mutex
	httpClient    *http.Client
	version       string
	batchSize     int
	flushInterval time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

var (
	globalCollector *Collector
	once            sync.Once
)

// Init initializes the global collector. Telemetry stays off unless
// enabled here and not disabled via environment.
func Init(version string, enabled bool) {
	once.Do(func() {
		globalCollector = &Collector{
			enabled:       enabled && !isDisabled(),
			endpoint:      endpointURL(),
			events:        make([]Event, 0, 100),
			httpClient:    &http.Client{Timeout: 5 * time.Second},
			version:       version,
			batchSize:     10,
			flushInterval: 30 * time.Second,
			stopChan:      make(chan struct{}),
		}

		if globalCollector.enabled {
			globalCollector.startBackgroundFlush()
		}
	})
}

// RecordOperation records a compile, execute, or subscribe outcome.
func RecordOperation(operation, statementKind string, duration time.Duration, err error) {
	if globalCollector == nil || !globalCollector.enabled {
		return
	}

	event := Event{
		EventType:     "operation",
		Operation:     operation,
		StatementKind: statementKind,
		Duration:      &duration,
		Timestamp:     time.Now(),
		Version:       globalCollector.version,
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
	}
	if err != nil {
		event.Error = err.Error()
	}

	globalCollector.recordEvent(event)
}

func (c *Collector) recordEvent(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)
	if len(c.events) >= c.batchSize {
		go c.flush()
	}
}

func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return
	}
	events := make([]Event, len(c.events))
	copy(events, c.events)
	c.events = c.events[:0]
	c.mu.Unlock()

	c.sendEvents(events)
}

// sendEvents posts a batch. Failures are dropped: telemetry never
// breaks the application.
func (c *Collector) sendEvents(events []Event) {
	payload := map[string]interface{}{"events": events}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(data))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("streamql-go/%s", c.version))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
}

func (c *Collector) startBackgroundFlush() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.flush()
			case <-c.stopChan:
				c.flush()
				return
			}
		}
	}()
}

// Shutdown stops the collector and flushes remaining events before
// returning. Safe to call more than once.
func Shutdown() {
	if globalCollector == nil {
		return
	}
	globalCollector.stopOnce.Do(func() {
		close(globalCollector.stopChan)
	})
	globalCollector.wg.Wait()
	globalCollector.flush()
}

// IsEnabled reports whether telemetry is collecting.
func IsEnabled() bool {
	return globalCollector != nil && globalCollector.enabled
}

func isDisabled() bool {
	if v := os.Getenv("STREAMQL_TELEMETRY_DISABLED"); v == "1" || v == "true" {
		return true
	}
	for _, arg := range os.Args {
		if arg == "--no-telemetry" {
			return true
		}
	}
	return false
}

func endpointURL() string {
	if endpoint := os.Getenv("STREAMQL_TELEMETRY_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "https://telemetry.streamql.dev/events"
}
