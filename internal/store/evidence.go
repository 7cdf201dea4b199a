package store

import (
	"context"
	"errors"

	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EvidenceStore struct {
	db *pgxpool.Pool
}

func NewEvidenceStore(db *pgxpool.Pool) *EvidenceStore {
	return &EvidenceStore{db: db}
}

func (s *EvidenceStore) Create(ctx context.Context, e *domain.Evidence) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO evidence (source, expires_at)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		e.Source, e.ExpiresAt,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EvidenceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Evidence, error) {
	e := &domain.Evidence{}
	err := s.db.QueryRow(ctx,
		`SELECT id, source, created_at, expires_at
		 FROM evidence WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Source, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListExpired returns evidence past its expiry that still backs at least
// one claim, oldest first. Evidence without an expiry never shows up.
func (s *EvidenceStore) ListExpired(ctx context.Context, limit int) ([]domain.Evidence, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT e.id, e.source, e.created_at, e.expires_at
		 FROM evidence e
		 JOIN claim_evidence ce ON ce.evidence_id = e.id
		 WHERE e.expires_at IS NOT NULL AND e.expires_at < now()
		 ORDER BY e.expires_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Evidence
	for rows.Next() {
		var e domain.Evidence
		if err := rows.Scan(&e.ID, &e.Source, &e.CreatedAt, &e.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *EvidenceStore) ClaimsReferencing(ctx context.Context, evidenceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT claim_id FROM claim_evidence WHERE evidence_id = $1`,
		evidenceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
