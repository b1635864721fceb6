// Package subscribe turns one streaming execution into a cancellable,
// observer-driven sequence with a terminal-state guarantee.
package subscribe

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/streamql/streamql-go/query/builder"
	"github.com/streamql/streamql-go/runtime/client"
)

// State is the lifecycle state of a subscription.
type State int32

const (
	// Created means the subscription exists but the connection is
	// not yet open.
	Created State = iota
	// Active means the read loop owns a live connection.
	Active
	// Completed means the server ended the stream without error.
	Completed
	// Faulted means a protocol, conversion, or network error ended
	// the stream.
	Faulted
	// Cancelled means the caller ended the stream.
	Cancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Active:
		return "Active"
	case Completed:
		return "Completed"
	case Faulted:
		return "Faulted"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further state changes or deliveries can
// follow.
func (s State) Terminal() bool {
	return s == Completed || s == Faulted || s == Cancelled
}

// Observer receives the rows and the single terminal signal of one
// subscription. OnNext is called once per row in server order; the
// next row is not read until OnNext returns, so a slow observer stalls
// the read loop instead of buffering without bound. Exactly one of
// OnError or OnCompleted is called, after which nothing else is.
type Observer[T any] interface {
	OnNext(record T)
	OnError(err error)
	OnCompleted()
}

// ObserverFuncs adapts plain functions to an Observer. Nil members are
// no-ops.
type ObserverFuncs[T any] struct {
	Next      func(record T)
	Error     func(err error)
	Completed func()
}

func (o ObserverFuncs[T]) OnNext(record T) {
	if o.Next != nil {
		o.Next(record)
	}
}

func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

func (o ObserverFuncs[T]) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}

// Subscription is the handle to one streaming execution. It owns
// exactly one connection and one observer; its state is mutated only
// by the read loop that owns the connection.
type Subscription struct {
	state  atomic.Int32
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	return State(s.state.Load())
}

// Err returns the terminal error, if any. Valid after Done is closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Done is closed once the subscription reaches a terminal state.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Cancel requests cooperative cancellation. The read loop observes it
// at the next row boundary at the latest, closes the connection, and
// transitions to Cancelled. Cancelling tears down only the client
// side: a continuous push query keeps running on the server until
// explicitly terminated there.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Subscribe opens one streaming execution of the statement and pumps
// its rows to the observer from a dedicated goroutine. Subscriptions
// built from the same statement are fully independent: separate
// connections, separate schemas, no shared mutable state.
func Subscribe[T any](ctx context.Context, c *client.Client, stmt *builder.Statement, observer Observer[T]) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	sub.state.Store(int32(Created))

	go readLoop(ctx, sub, c, stmt, observer)
	return sub
}

// readLoop owns the connection. It is the only goroutine that mutates
// the subscription's state, which keeps every transition and the
// single terminal callback race-free by construction.
func readLoop[T any](ctx context.Context, sub *Subscription, c *client.Client, stmt *builder.Statement, observer Observer[T]) {
	defer close(sub.done)

	terminate := func(state State, err error) {
		sub.err = err
		sub.state.Store(int32(state))
		if state == Completed {
			observer.OnCompleted()
		} else {
			observer.OnError(err)
		}
	}

	stream, err := c.Execute(ctx, stmt)
	if err != nil {
		if errors.Is(err, client.ErrCancelled) {
			terminate(Cancelled, client.ErrCancelled)
		} else {
			terminate(Faulted, err)
		}
		return
	}
	defer stream.Close()
	sub.state.Store(int32(Active))

	for {
		row, err := stream.Next()
		switch {
		case err == io.EOF:
			terminate(Completed, nil)
			return
		case errors.Is(err, client.ErrCancelled):
			terminate(Cancelled, client.ErrCancelled)
			return
		case err != nil:
			terminate(Faulted, err)
			return
		}

		record, err := client.Materialize[T](stream.Schema(), row)
		if err != nil {
			terminate(Faulted, err)
			return
		}

		// A cancellation racing with this row wins: the row is
		// discarded, not delivered.
		if ctx.Err() != nil {
			terminate(Cancelled, client.ErrCancelled)
			return
		}

		// Delivery gates the next read.
		observer.OnNext(record)
	}
}
