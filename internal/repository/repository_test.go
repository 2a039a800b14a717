package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit-api/pkg/seed"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

type failingTransport struct{}

func (failingTransport) ReadAll(context.Context, string) ([]tablestore.Row, error) {
	return nil, errors.New("connection reset")
}

func (failingTransport) AppendRow(context.Context, string, []string) (int64, error) {
	return 0, errors.New("connection reset")
}

func newSeededStore(t *testing.T) tablestore.Transport {
	t.Helper()
	store := tablestore.NewMemory(Schema())
	doc, err := seed.Default()
	require.NoError(t, err)
	_, err = NewCatalogRepository(store, "Absent").Provision(context.Background(), doc)
	require.NoError(t, err)
	return store
}
