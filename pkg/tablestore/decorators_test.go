package tablestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stalledTransport struct{}

func (stalledTransport) ReadAll(ctx context.Context, _ string) ([]Row, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledTransport) AppendRow(ctx context.Context, _ string, _ []string) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

type recordingObserver struct {
	ops  []string
	errs []error
}

func (r *recordingObserver) ObserveStorageCall(op, table string, _ time.Duration, err error) {
	r.ops = append(r.ops, op+":"+table)
	r.errs = append(r.errs, err)
}

func TestWithTimeoutFailsFast(t *testing.T) {
	store := WithTimeout(stalledTransport{}, 20*time.Millisecond)

	start := time.Now()
	_, err := store.AppendRow(context.Background(), "events", []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestInstrumentReportsCalls(t *testing.T) {
	observer := &recordingObserver{}
	store := Instrument(NewMemory(testSchema()), observer)

	_, err := store.AppendRow(context.Background(), "plans", []string{"Week 2"})
	require.NoError(t, err)
	_, err = store.ReadAll(context.Background(), "missing")
	require.Error(t, err)

	assert.Equal(t, []string{"append:plans", "read:missing"}, observer.ops)
	assert.NoError(t, observer.errs[0])
	assert.Error(t, observer.errs[1])
}
