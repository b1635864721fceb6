package ast

import "time"

// WindowKind identifies the windowing strategy.
type WindowKind string

const (
	WindowTumbling WindowKind = "TUMBLING"
	WindowHopping  WindowKind = "HOPPING"
	WindowSession  WindowKind = "SESSION"
)

// WindowSpec describes a time window for aggregation queries.
type WindowSpec struct {
	Kind      WindowKind
	Size      time.Duration // window size, or inactivity gap for session windows
	Advance   time.Duration // hop interval, hopping windows only
	Retention time.Duration // optional retention period
}

// TumblingWindow creates a fixed, non-overlapping window of the given size.
func TumblingWindow(size time.Duration) *WindowSpec {
	return &WindowSpec{Kind: WindowTumbling, Size: size}
}

// HoppingWindow creates an overlapping window of the given size that
// advances by the given interval.
func HoppingWindow(size, advance time.Duration) *WindowSpec {
	return &WindowSpec{Kind: WindowHopping, Size: size, Advance: advance}
}

// SessionWindow creates a gap-based window closed after the given
// period of inactivity.
func SessionWindow(gap time.Duration) *WindowSpec {
	return &WindowSpec{Kind: WindowSession, Size: gap}
}

// WithRetention sets the retention period for the window.
func (w *WindowSpec) WithRetention(retention time.Duration) *WindowSpec {
	w.Retention = retention
	return w
}
