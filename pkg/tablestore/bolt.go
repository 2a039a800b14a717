package tablestore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// BoltTransport persists tables as bbolt buckets in a single file. Keys are the
// big-endian bucket sequence so cursor order equals append order.
type BoltTransport struct {
	db     *bbolt.DB
	schema Schema
}

// OpenBolt opens (or creates) the database file and its buckets.
func OpenBolt(path string, schema Schema) (*BoltTransport, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare bolt directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, t := range schema.Tables() {
			if _, err := tx.CreateBucketIfNotExists([]byte(t.Name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}
	return &BoltTransport{db: db, schema: schema}, nil
}

// Close releases the file lock.
func (b *BoltTransport) Close() error {
	return b.db.Close()
}

// ReadAll decodes every record of the bucket in key order.
func (b *BoltTransport) ReadAll(ctx context.Context, table string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := b.schema.Columns(table); err != nil {
		return nil, err
	}
	var out []Row
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", table)
		}
		return bucket.ForEach(func(k, v []byte) error {
			values := map[string]string{}
			if err := json.Unmarshal(v, &values); err != nil {
				return fmt.Errorf("decode %s/%d: %w", table, binary.BigEndian.Uint64(k), err)
			}
			out = append(out, Row{Seq: int64(binary.BigEndian.Uint64(k)), Values: values})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}

// AppendRow writes the record inside one update transaction.
func (b *BoltTransport) AppendRow(ctx context.Context, table string, values []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	_, mapped, err := b.schema.bind(table, values)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(mapped)
	if err != nil {
		return 0, fmt.Errorf("encode %s row: %w", table, err)
	}

	var seq uint64
	err = b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", table)
		}
		next, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, next)
		if err := bucket.Put(key, payload); err != nil {
			return err
		}
		seq = next
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", table, err)
	}
	return int64(seq), nil
}
