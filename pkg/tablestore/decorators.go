package tablestore

import (
	"context"
	"time"
)

// WithTimeout bounds every transport call so a stalled backend fails fast.
func WithTimeout(next Transport, timeout time.Duration) Transport {
	if timeout <= 0 {
		return next
	}
	return &timeoutTransport{next: next, timeout: timeout}
}

type timeoutTransport struct {
	next    Transport
	timeout time.Duration
}

func (t *timeoutTransport) ReadAll(ctx context.Context, table string) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ReadAll(ctx, table)
}

func (t *timeoutTransport) AppendRow(ctx context.Context, table string, values []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.AppendRow(ctx, table, values)
}

// Observer receives timing for each transport call.
type Observer interface {
	ObserveStorageCall(op, table string, duration time.Duration, err error)
}

// Instrument reports every call to the observer.
func Instrument(next Transport, observer Observer) Transport {
	if observer == nil {
		return next
	}
	return &instrumentedTransport{next: next, observer: observer}
}

type instrumentedTransport struct {
	next     Transport
	observer Observer
}

func (t *instrumentedTransport) ReadAll(ctx context.Context, table string) ([]Row, error) {
	start := time.Now()
	rows, err := t.next.ReadAll(ctx, table)
	t.observer.ObserveStorageCall("read", table, time.Since(start), err)
	return rows, err
}

func (t *instrumentedTransport) AppendRow(ctx context.Context, table string, values []string) (int64, error) {
	start := time.Now()
	seq, err := t.next.AppendRow(ctx, table, values)
	t.observer.ObserveStorageCall("append", table, time.Since(start), err)
	return seq, err
}
