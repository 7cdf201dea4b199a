package ledger

import (
	"context"
	"errors"

	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists the ledger in a single append-only table. The
// sequence column is BIGSERIAL, so ordering is assigned by the database
// and survives restarts.
type PostgresLedger struct {
	db *pgxpool.Pool
}

func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Append(ctx context.Context, e *domain.LedgerEntry) error {
	if !domain.ValidEntryKind(string(e.Kind)) {
		return ErrInvalidKind
	}
	parents := e.ParentSeqs
	if parents == nil {
		parents = []uint64{}
	}
	return l.db.QueryRow(ctx,
		`INSERT INTO ledger_entries (kind, payload, correlation_id, parent_seqs)
		 VALUES ($1, $2, $3, $4)
		 RETURNING sequence, recorded_at`,
		e.Kind, e.Payload, e.CorrelationID, parents,
	).Scan(&e.Sequence, &e.Timestamp)
}

func (l *PostgresLedger) GetBySequence(ctx context.Context, seq uint64) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := l.db.QueryRow(ctx,
		`SELECT sequence, kind, payload, correlation_id, recorded_at, parent_seqs
		 FROM ledger_entries WHERE sequence = $1`,
		seq,
	).Scan(&e.Sequence, &e.Kind, &e.Payload, &e.CorrelationID, &e.Timestamp, &e.ParentSeqs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func (l *PostgresLedger) ReadFrom(ctx context.Context, from uint64, limit int) ([]domain.LedgerEntry, error) {
	rows, err := l.db.Query(ctx,
		`SELECT sequence, kind, payload, correlation_id, recorded_at, parent_seqs
		 FROM ledger_entries WHERE sequence > $1
		 ORDER BY sequence ASC
		 LIMIT $2`,
		from, nullableLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (l *PostgresLedger) ReadByKind(ctx context.Context, kind domain.EntryKind, from uint64, limit int) ([]domain.LedgerEntry, error) {
	rows, err := l.db.Query(ctx,
		`SELECT sequence, kind, payload, correlation_id, recorded_at, parent_seqs
		 FROM ledger_entries WHERE kind = $1 AND sequence > $2
		 ORDER BY sequence ASC
		 LIMIT $3`,
		kind, from, nullableLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (l *PostgresLedger) Correlate(ctx context.Context, correlationID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := l.db.Query(ctx,
		`SELECT sequence, kind, payload, correlation_id, recorded_at, parent_seqs
		 FROM ledger_entries WHERE correlation_id = $1
		 ORDER BY sequence ASC`,
		correlationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (l *PostgresLedger) Head(ctx context.Context) (uint64, error) {
	var head uint64
	err := l.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM ledger_entries`,
	).Scan(&head)
	return head, err
}

func scanEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.Sequence, &e.Kind, &e.Payload, &e.CorrelationID, &e.Timestamp, &e.ParentSeqs); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// nullableLimit maps "no limit" to NULL so LIMIT is a no-op.
func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
