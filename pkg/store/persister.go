package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sternrassler/ladder-ingest/pkg/cache"
	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

// EntityPtr constrains P to a pointer to T that implements Entity.
type EntityPtr[T any] interface {
	*T
	Entity
}

// Persister returns a cache.Persister that converts each record to a T and
// inserts the whole batch in one transaction. A record that fails to convert
// fails the batch before anything is written.
//
//	p := store.Persister[store.Player](db, run)
func Persister[T any, P EntityPtr[T]](s *Store, run Run) cache.Persister {
	return cache.PersistFunc(func(ctx context.Context, batch []league.Record) error {
		entities := make([]P, 0, len(batch))
		for i, rec := range batch {
			e := P(new(T))
			if err := e.FromRecord(rec); err != nil {
				return fmt.Errorf("convert record %d: %w", i, err)
			}
			entities = append(entities, e)
		}

		return s.InTx(ctx, func(tx *sql.Tx) error {
			for _, e := range entities {
				if err := e.Insert(ctx, tx, run); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
