package store

import (
	"context"
	"errors"

	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClaimStore struct {
	db *pgxpool.Pool
}

func NewClaimStore(db *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{db: db}
}

func (s *ClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO claims (content_ref, producer, confidence, effective_confidence, status, correlation_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		c.ContentRef, c.Producer, c.Confidence, c.Effective, c.Status, c.CorrelationID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *ClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	c := &domain.Claim{}
	err := s.db.QueryRow(ctx,
		`SELECT c.id, c.content_ref, c.producer, c.confidence, c.effective_confidence,
		        c.status, c.correlation_id, c.created_at, c.updated_at,
		        COALESCE(array_agg(ce.evidence_id) FILTER (WHERE ce.evidence_id IS NOT NULL), '{}')
		 FROM claims c
		 LEFT JOIN claim_evidence ce ON ce.claim_id = c.id
		 WHERE c.id = $1
		 GROUP BY c.id`,
		id,
	).Scan(&c.ID, &c.ContentRef, &c.Producer, &c.Confidence, &c.Effective,
		&c.Status, &c.CorrelationID, &c.CreatedAt, &c.UpdatedAt, &c.EvidenceIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ClaimStore) ListByProducer(ctx context.Context, producer string, limit int) ([]domain.Claim, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, content_ref, producer, confidence, effective_confidence,
		        status, correlation_id, created_at, updated_at
		 FROM claims WHERE producer = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		producer, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (s *ClaimStore) ListByStatus(ctx context.Context, status domain.ClaimStatus, limit int) ([]domain.Claim, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, content_ref, producer, confidence, effective_confidence,
		        status, correlation_id, created_at, updated_at
		 FROM claims WHERE status = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClaims(rows)
}

// UpdateResolution writes back the fields resolution is allowed to touch:
// effective confidence and status. The stated confidence is immutable.
func (s *ClaimStore) UpdateResolution(ctx context.Context, c *domain.Claim) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET effective_confidence = $2, status = $3, updated_at = now()
		 WHERE id = $1`,
		c.ID, c.Effective, c.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ClaimStore) AttachEvidence(ctx context.Context, claimID, evidenceID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO claim_evidence (claim_id, evidence_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		claimID, evidenceID,
	)
	return err
}

func scanClaims(rows pgx.Rows) ([]domain.Claim, error) {
	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.ID, &c.ContentRef, &c.Producer, &c.Confidence, &c.Effective,
			&c.Status, &c.CorrelationID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
