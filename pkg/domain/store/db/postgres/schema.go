package postgres

import (
	"context"
	_ "embed"

	kpool "github.com/storeward/storeward/pkg/conn/db/postgres/pool"
	xe "github.com/storeward/storeward/pkg/errors"
)

//go:embed schema.sql
var schema string

// Ensure applies the stores DDL. It is idempotent and runs at boot,
// before the recovery controller scans for non-terminal stores.
func Ensure(ctx context.Context, pool kpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
