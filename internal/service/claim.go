package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/credencelab/credence/internal/domain"
	"github.com/credencelab/credence/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrClaimNotFound        = errors.New("claim not found")
	ErrEvidenceNotFound     = errors.New("evidence not found")
	ErrDefeaterNotFound     = errors.New("defeater not found")
	ErrContentRefMissing    = errors.New("content_ref is required")
	ErrProducerMissing      = errors.New("producer is required")
	ErrInvalidDefeaterKind  = errors.New("invalid defeater kind")
	ErrDefeaterTargetCount  = errors.New("defeater must attack exactly one target")
	ErrClaimAlreadyVerified = errors.New("claim outcome already verified")
)

// OutcomeRecorder is the calibration tracker's write side.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, o domain.Outcome) (uint64, error)
}

type ClaimService struct {
	claimStore    domain.ClaimStore
	defeaterStore domain.DefeaterStore
	evidenceStore domain.EvidenceStore
	ledger        domain.LedgerStore
	outcomes      OutcomeRecorder
	logger        *zap.Logger
}

func NewClaimService(cs domain.ClaimStore, ds domain.DefeaterStore, es domain.EvidenceStore, l domain.LedgerStore, logger *zap.Logger) *ClaimService {
	return &ClaimService{
		claimStore:    cs,
		defeaterStore: ds,
		evidenceStore: es,
		ledger:        l,
		logger:        logger,
	}
}

func (s *ClaimService) SetOutcomeRecorder(r OutcomeRecorder) {
	s.outcomes = r
}

// SubmitClaim records a new claim and its ledger entry. The effective
// confidence starts equal to the stated confidence; resolution may lower
// it later but never raises it.
func (s *ClaimService) SubmitClaim(ctx context.Context, c *domain.Claim) error {
	if c.ContentRef == "" {
		return ErrContentRefMissing
	}
	if c.Producer == "" {
		return ErrProducerMissing
	}
	if c.CorrelationID == uuid.Nil {
		c.CorrelationID = uuid.New()
	}
	c.Status = domain.ClaimEntertained
	c.Effective = c.Confidence

	if err := s.claimStore.Create(ctx, c); err != nil {
		return fmt.Errorf("create claim: %w", err)
	}

	payload, err := domain.MarshalPayload(domain.ClaimPayload{
		ClaimID:     c.ID,
		ContentRef:  c.ContentRef,
		Producer:    c.Producer,
		Confidence:  c.Confidence,
		EvidenceIDs: c.EvidenceIDs,
	})
	if err != nil {
		return fmt.Errorf("encode claim payload: %w", err)
	}
	entry := domain.LedgerEntry{
		Kind:          domain.EntryClaim,
		Payload:       payload,
		CorrelationID: c.CorrelationID,
	}
	if err := s.ledger.Append(ctx, &entry); err != nil {
		return fmt.Errorf("ledger claim: %w", err)
	}

	s.logger.Info("claim submitted",
		zap.String("claim_id", c.ID.String()),
		zap.String("producer", c.Producer),
		zap.Uint64("sequence", entry.Sequence))
	return nil
}

func (s *ClaimService) GetClaim(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	c, err := s.claimStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return c, nil
}

// CreateEvidence records a piece of evidence; claims reference it later.
func (s *ClaimService) CreateEvidence(ctx context.Context, e *domain.Evidence) error {
	if e.Source == "" {
		return errors.New("source is required")
	}
	if err := s.evidenceStore.Create(ctx, e); err != nil {
		return fmt.Errorf("create evidence: %w", err)
	}
	return nil
}

// AttachEvidence links existing evidence to an existing claim and records
// the link in the ledger, pointing at the claim's ledger entry lineage via
// the claim's correlation id.
func (s *ClaimService) AttachEvidence(ctx context.Context, claimID, evidenceID uuid.UUID) error {
	c, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if _, err := s.evidenceStore.GetByID(ctx, evidenceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEvidenceNotFound
		}
		return err
	}
	if err := s.claimStore.AttachEvidence(ctx, claimID, evidenceID); err != nil {
		return fmt.Errorf("attach evidence: %w", err)
	}

	payload, err := domain.MarshalPayload(map[string]any{
		"claim_id":    claimID,
		"evidence_id": evidenceID,
	})
	if err != nil {
		return err
	}
	entry := domain.LedgerEntry{
		Kind:          domain.EntryEvidence,
		Payload:       payload,
		CorrelationID: c.CorrelationID,
	}
	if err := s.ledger.Append(ctx, &entry); err != nil {
		return fmt.Errorf("ledger evidence: %w", err)
	}
	return nil
}

// DeclareDefeater records a challenge against a claim or against another
// defeater. It does not resolve anything: declarations accumulate until a
// resolution run evaluates them together.
func (s *ClaimService) DeclareDefeater(ctx context.Context, d *domain.Defeater) error {
	if !domain.ValidDefeaterKind(string(d.Kind)) {
		return ErrInvalidDefeaterKind
	}
	if (d.AttacksClaim == nil) == (d.AttacksDefeater == nil) {
		return ErrDefeaterTargetCount
	}
	if d.AttacksClaim != nil {
		if _, err := s.GetClaim(ctx, *d.AttacksClaim); err != nil {
			return err
		}
	}
	if d.AttacksDefeater != nil {
		if _, err := s.defeaterStore.GetByID(ctx, *d.AttacksDefeater); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrDefeaterNotFound
			}
			return err
		}
	}
	if d.Strength.IsAbsent() {
		d.Strength = confidence.Deterministic(true, "unqualified challenge")
	}
	if d.CorrelationID == uuid.Nil {
		d.CorrelationID = uuid.New()
	}

	if err := s.defeaterStore.Create(ctx, d); err != nil {
		return fmt.Errorf("create defeater: %w", err)
	}

	payload, err := domain.MarshalPayload(domain.DefeatPayload{
		DefeaterID:      d.ID,
		Kind:            d.Kind,
		AttacksClaim:    d.AttacksClaim,
		AttacksDefeater: d.AttacksDefeater,
		Strength:        d.Strength,
	})
	if err != nil {
		return fmt.Errorf("encode defeat payload: %w", err)
	}
	entry := domain.LedgerEntry{
		Kind:          domain.EntryDefeat,
		Payload:       payload,
		CorrelationID: d.CorrelationID,
	}
	if err := s.ledger.Append(ctx, &entry); err != nil {
		return fmt.Errorf("ledger defeat: %w", err)
	}

	s.logger.Info("defeater declared",
		zap.String("defeater_id", d.ID.String()),
		zap.String("kind", string(d.Kind)))
	return nil
}

// VerifyOutcome closes the loop on a claim: the ground truth arrives, the
// claim's status flips to accepted or rejected, and the outcome feeds the
// producer's calibration record.
func (s *ClaimService) VerifyOutcome(ctx context.Context, claimID uuid.UUID, actual bool) (*domain.Claim, error) {
	c, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ClaimAccepted || c.Status == domain.ClaimRejected {
		return nil, ErrClaimAlreadyVerified
	}

	if actual {
		c.Status = domain.ClaimAccepted
	} else {
		c.Status = domain.ClaimRejected
	}
	if err := s.claimStore.UpdateResolution(ctx, c); err != nil {
		return nil, fmt.Errorf("update claim: %w", err)
	}

	if s.outcomes != nil {
		point, ok := c.Effective.Point()
		if !ok {
			// Bounded and absent confidence has no point estimate; the
			// interval midpoint is the least-wrong stand-in.
			if lo, hi, bok := c.Effective.Bounds(); bok {
				point, ok = (lo+hi)/2, true
			}
		}
		if ok {
			if _, err := s.outcomes.RecordOutcome(ctx, domain.Outcome{
				ClaimID:   c.ID,
				Producer:  c.Producer,
				Predicted: point,
				Actual:    actual,
			}); err != nil {
				s.logger.Warn("failed to record outcome", zap.Error(err))
			}
		}
	}

	s.logger.Info("claim outcome verified",
		zap.String("claim_id", c.ID.String()),
		zap.Bool("actual", actual),
		zap.String("status", string(c.Status)))
	return c, nil
}
