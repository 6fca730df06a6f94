package tr

import (
	"context"

	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
)

// TxFromCtx извлекает транзакцию из контекста. Вне области соединения возвращает ошибку,
// поэтому записи не могут выполниться в обход транзакции.
func TxFromCtx(ctx context.Context, db *sqlx.DB) (trmsqlx.Tr, error) {
	tx := trmsqlx.DefaultCtxGetter.DefaultTrOrDB(ctx, db)
	if _, isPool := tx.(*sqlx.DB); isPool {
		return nil, e.ErrTransactionNotFound
	}

	return tx, nil
}

// Executor возвращает транзакцию из контекста или сам пул.
func Executor(ctx context.Context, db *sqlx.DB) trmsqlx.Tr {
	return trmsqlx.DefaultCtxGetter.DefaultTrOrDB(ctx, db)
}
