package service

import (
	"context"
	"fmt"

	"github.com/credencelab/credence/internal/defeat"
	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const resolveWriteConcurrency = 8

// ResolutionService evaluates the full defeater graph and writes the
// verdict back: defeater active flags, claim effective confidence and
// status, and one resolution entry in the ledger.
type ResolutionService struct {
	claimStore    domain.ClaimStore
	defeaterStore domain.DefeaterStore
	ledger        domain.LedgerStore
	logger        *zap.Logger
	maxIterations int
}

func NewResolutionService(cs domain.ClaimStore, ds domain.DefeaterStore, l domain.LedgerStore, logger *zap.Logger) *ResolutionService {
	return &ResolutionService{
		claimStore:    cs,
		defeaterStore: ds,
		ledger:        l,
		logger:        logger,
		maxIterations: defeat.DefaultMaxIterations,
	}
}

func (s *ResolutionService) SetMaxIterations(n int) {
	s.maxIterations = n
}

// Verdict is the outcome of one resolution run.
type Verdict struct {
	Result         defeat.Result `json:"result"`
	ClaimsDefeated []uuid.UUID   `json:"claims_defeated"`
	ClaimsRestored []uuid.UUID   `json:"claims_restored"`
	LedgerSequence uint64        `json:"ledger_sequence"`
}

// ResolveAll snapshots every declared defeater into an immutable graph,
// computes the grounded extension, and applies it. Declarations made
// while a run is in flight are picked up by the next run, never this one.
func (s *ResolutionService) ResolveAll(ctx context.Context) (*Verdict, error) {
	defeaters, err := s.defeaterStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list defeaters: %w", err)
	}

	g, err := s.buildGraph(defeaters)
	if err != nil {
		return nil, err
	}
	res := defeat.Resolve(g, defeat.WithMaxIterations(s.maxIterations))
	if !res.Converged {
		s.logger.Warn("resolution hit the iteration cap",
			zap.Int("iterations", res.Iterations),
			zap.Int("cycles", len(res.Cycles)))
	}

	if err := s.applyDefeaterFlags(ctx, defeaters, &res); err != nil {
		return nil, err
	}
	verdict, err := s.applyClaims(ctx, g, &res)
	if err != nil {
		return nil, err
	}

	seq, err := s.recordVerdict(ctx, &res)
	if err != nil {
		return nil, err
	}
	verdict.LedgerSequence = seq

	s.logger.Info("resolution complete",
		zap.Int("defeaters", g.Size()),
		zap.Int("active", len(res.Active)),
		zap.Int("defeated", len(res.Defeated)),
		zap.Int("undecided", len(res.Undecided)),
		zap.Int("claims_defeated", len(verdict.ClaimsDefeated)),
		zap.Bool("converged", res.Converged))
	return verdict, nil
}

func (s *ResolutionService) buildGraph(defeaters []domain.Defeater) (*defeat.Graph, error) {
	g := defeat.NewGraph()
	for _, d := range defeaters {
		if err := g.AddDefeater(d.ID, d.Strength); err != nil {
			return nil, fmt.Errorf("defeater %s: %w", d.ID, err)
		}
	}
	for _, d := range defeaters {
		switch {
		case d.AttacksDefeater != nil:
			if err := g.AddAttack(d.ID, *d.AttacksDefeater); err != nil {
				return nil, fmt.Errorf("attack %s -> %s: %w", d.ID, *d.AttacksDefeater, err)
			}
		case d.AttacksClaim != nil:
			if err := g.AddClaimAttack(d.ID, *d.AttacksClaim); err != nil {
				return nil, fmt.Errorf("claim attack %s -> %s: %w", d.ID, *d.AttacksClaim, err)
			}
		}
	}
	return g, nil
}

func (s *ResolutionService) applyDefeaterFlags(ctx context.Context, defeaters []domain.Defeater, res *defeat.Result) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(resolveWriteConcurrency)
	for _, d := range defeaters {
		active := res.IsActive(d.ID)
		if d.Active == active {
			continue
		}
		id := d.ID
		eg.Go(func() error {
			if err := s.defeaterStore.SetActive(ctx, id, active); err != nil {
				return fmt.Errorf("set active %s: %w", id, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

func (s *ResolutionService) applyClaims(ctx context.Context, g *defeat.Graph, res *defeat.Result) (*Verdict, error) {
	verdict := &Verdict{Result: *res}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(resolveWriteConcurrency)

	type claimUpdate struct {
		id       uuid.UUID
		defeated bool
	}
	updates := make(chan claimUpdate, len(g.Claims()))

	for _, claimID := range g.Claims() {
		claimID := claimID
		eg.Go(func() error {
			c, err := s.claimStore.GetByID(ctx, claimID)
			if err != nil {
				// A defeater may target a claim this store never saw;
				// skip rather than fail the whole run.
				s.logger.Warn("resolution skipping unknown claim",
					zap.String("claim_id", claimID.String()), zap.Error(err))
				return nil
			}

			nowDefeated := defeat.Defeated(g, res, claimID)
			c.Effective = defeat.EffectiveConfidence(g, res, claimID, c.Confidence)
			switch {
			case nowDefeated:
				c.Status = domain.ClaimDefeated
			case c.Status == domain.ClaimDefeated:
				// All attackers were themselves defeated; the claim is
				// back on the table.
				c.Status = domain.ClaimEntertained
			}
			if err := s.claimStore.UpdateResolution(ctx, c); err != nil {
				return fmt.Errorf("update claim %s: %w", claimID, err)
			}
			updates <- claimUpdate{id: claimID, defeated: nowDefeated}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	close(updates)
	for u := range updates {
		if u.defeated {
			verdict.ClaimsDefeated = append(verdict.ClaimsDefeated, u.id)
		} else {
			verdict.ClaimsRestored = append(verdict.ClaimsRestored, u.id)
		}
	}
	return verdict, nil
}

func (s *ResolutionService) recordVerdict(ctx context.Context, res *defeat.Result) (uint64, error) {
	payload, err := domain.MarshalPayload(domain.ResolutionPayload{
		ActiveDefeaters: res.Active,
		Converged:       res.Converged,
		Iterations:      res.Iterations,
		Cycles:          res.Cycles,
	})
	if err != nil {
		return 0, fmt.Errorf("encode resolution payload: %w", err)
	}
	entry := domain.LedgerEntry{
		Kind:          domain.EntryResolution,
		Payload:       payload,
		CorrelationID: uuid.New(),
	}
	if err := s.ledger.Append(ctx, &entry); err != nil {
		return 0, fmt.Errorf("ledger resolution: %w", err)
	}
	return entry.Sequence, nil
}
