package tablestore

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-merit-api/pkg/config"
	"github.com/noah-isme/sma-merit-api/pkg/database"
)

// Open builds the transport selected by configuration. The returned cleanup
// function releases backend resources and is never nil.
func Open(ctx context.Context, cfg *config.Config, schema Schema) (Transport, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return NewMemory(schema), noop, nil
	case config.StorageBolt:
		bt, err := OpenBolt(cfg.Storage.BoltPath, schema)
		if err != nil {
			return nil, noop, err
		}
		return bt, func() { _ = bt.Close() }, nil
	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		pt := NewPostgres(db, schema)
		if err := pt.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return pt, func() { _ = db.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
}
