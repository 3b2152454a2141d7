package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	txcontext "cashless/pkg/platform/tx"
)

// PostgresStore keeps the outbox in the ledger_outbox table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts e, joining the caller's transaction when the context carries one.
func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO ledger_outbox (id, company, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, query,
		e.ID, e.Company, e.AggregateID, e.EventType, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Publish locks a batch with SKIP LOCKED so that concurrent publishers never send the
// same entry twice while both are alive.
func (s *PostgresStore) Publish(ctx context.Context, limit int, fn func(ctx context.Context, entries []Entry) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, company, aggregate_id, event_type, payload, created_at
		FROM ledger_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return 0, fmt.Errorf("claim outbox entries: %w", err)
	}
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Company, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close outbox rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := fn(ctx, entries); err != nil {
		return 0, err
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE ledger_outbox SET published_at = now() WHERE id::text = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("mark outbox entries published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(entries), nil
}
