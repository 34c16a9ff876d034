package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and passes the
// handle as tx. Repositories accept NoTX for the non-transactional path and
// take row locks (SELECT ... FOR UPDATE) only when handed a real tx.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		b, err := bindings.FindByTelegramID(ctx, tx, tgID)
//		...
//		return bindings.Update(ctx, tx, b)
//	})
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
