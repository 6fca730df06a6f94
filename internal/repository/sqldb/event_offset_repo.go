package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/storage"
	"github.com/DRSN-tech/inventory-tracker/pkg/tr"
	"github.com/jimlawless/whereami"
	"github.com/jmoiron/sqlx"
)

// EventOffsetRepo хранит для каждого потребителя id последнего доставленного события.
// Сам журнал при доставке не изменяется.
type EventOffsetRepo struct {
	storage *storage.Storage
}

func NewEventOffsetRepo(storage *storage.Storage) *EventOffsetRepo {
	return &EventOffsetRepo{storage: storage}
}

// Get возвращает смещение потребителя; для нового потребителя — 0.
func (r *EventOffsetRepo) Get(ctx context.Context, consumer string) (int64, error) {
	query := r.storage.Rebind(`SELECT last_event_id FROM event_offsets WHERE consumer = ?`)

	var lastID int64
	if err := sqlx.GetContext(ctx, tr.Executor(ctx, r.storage.DB()), &lastID, query, consumer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return lastID, nil
}

func (r *EventOffsetRepo) Save(ctx context.Context, consumer string, lastEventID int64) error {
	tx, err := tr.TxFromCtx(ctx, r.storage.DB())
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := r.storage.Rebind(`
		INSERT INTO event_offsets (consumer, last_event_id) VALUES (?, ?)
		ON CONFLICT (consumer) DO UPDATE SET last_event_id = excluded.last_event_id
	`)

	if _, err := tx.ExecContext(ctx, query, consumer, lastEventID); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
