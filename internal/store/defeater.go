package store

import (
	"context"
	"errors"

	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DefeaterStore struct {
	db *pgxpool.Pool
}

func NewDefeaterStore(db *pgxpool.Pool) *DefeaterStore {
	return &DefeaterStore{db: db}
}

func (s *DefeaterStore) Create(ctx context.Context, d *domain.Defeater) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO defeaters (kind, attacks_claim, attacks_defeater, strength, active, correlation_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		d.Kind, d.AttacksClaim, d.AttacksDefeater, d.Strength, d.Active, d.CorrelationID,
	).Scan(&d.ID, &d.CreatedAt)
}

func (s *DefeaterStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Defeater, error) {
	d := &domain.Defeater{}
	err := s.db.QueryRow(ctx,
		`SELECT id, kind, attacks_claim, attacks_defeater, strength, active, correlation_id, created_at
		 FROM defeaters WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Kind, &d.AttacksClaim, &d.AttacksDefeater, &d.Strength, &d.Active, &d.CorrelationID, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *DefeaterStore) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Defeater, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, kind, attacks_claim, attacks_defeater, strength, active, correlation_id, created_at
		 FROM defeaters WHERE attacks_claim = $1
		 ORDER BY created_at ASC`,
		claimID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefeaters(rows)
}

func (s *DefeaterStore) ListAll(ctx context.Context) ([]domain.Defeater, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, kind, attacks_claim, attacks_defeater, strength, active, correlation_id, created_at
		 FROM defeaters
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefeaters(rows)
}

func (s *DefeaterStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE defeaters SET active = $2 WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDefeaters(rows pgx.Rows) ([]domain.Defeater, error) {
	var defeaters []domain.Defeater
	for rows.Next() {
		var d domain.Defeater
		if err := rows.Scan(&d.ID, &d.Kind, &d.AttacksClaim, &d.AttacksDefeater, &d.Strength, &d.Active, &d.CorrelationID, &d.CreatedAt); err != nil {
			return nil, err
		}
		defeaters = append(defeaters, d)
	}
	return defeaters, rows.Err()
}
