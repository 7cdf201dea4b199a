package service

import (
	"context"
	"sync"
	"time"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/credencelab/credence/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval = 15 * time.Minute
	sweepBatchSize       = 100
	sweepTimeout         = 30 * time.Second
)

// ExpirySweeper turns stale evidence into undermining defeaters. Evidence
// is never deleted; instead every claim resting on expired evidence gets a
// defeater declared against it, and the next resolution run decides what
// still stands.
type ExpirySweeper struct {
	evidenceStore domain.EvidenceStore
	claims        *ClaimService
	resolution    *ResolutionService
	logger        *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu    sync.Mutex
	swept map[string]bool
}

func NewExpirySweeper(es domain.EvidenceStore, claims *ClaimService, resolution *ResolutionService, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		evidenceStore: es,
		claims:        claims,
		resolution:    resolution,
		logger:        logger,
		interval:      defaultSweepInterval,
		stopCh:        make(chan struct{}),
		swept:         make(map[string]bool),
	}
}

func (s *ExpirySweeper) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the sweeper on a periodic schedule in a background goroutine.
func (s *ExpirySweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("evidence expiry sweeper started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
				s.Sweep(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("evidence expiry sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *ExpirySweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Sweep runs one pass. Exported so tests and admin endpoints can trigger
// it without waiting for the ticker.
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	expired, err := s.evidenceStore.ListExpired(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to list expired evidence", zap.Error(err))
		return
	}
	if len(expired) == 0 {
		return
	}

	declared := 0
	for _, ev := range expired {
		claimIDs, err := s.evidenceStore.ClaimsReferencing(ctx, ev.ID)
		if err != nil {
			s.logger.Warn("failed to find claims for expired evidence",
				zap.String("evidence_id", ev.ID.String()), zap.Error(err))
			continue
		}
		for _, claimID := range claimIDs {
			if s.alreadySwept(ev.ID.String() + ":" + claimID.String()) {
				continue
			}
			claimID := claimID
			d := &domain.Defeater{
				Kind:         domain.DefeaterUndermining,
				AttacksClaim: &claimID,
				Strength:     confidence.Deterministic(true, "evidence expired: "+ev.Source),
			}
			if err := s.claims.DeclareDefeater(ctx, d); err != nil {
				s.logger.Warn("failed to declare expiry defeater",
					zap.String("evidence_id", ev.ID.String()),
					zap.String("claim_id", claimID.String()),
					zap.Error(err))
				continue
			}
			declared++
		}
	}

	if declared == 0 {
		return
	}
	s.logger.Info("declared expiry defeaters", zap.Int("count", declared))
	if _, err := s.resolution.ResolveAll(ctx); err != nil {
		s.logger.Error("post-sweep resolution failed", zap.Error(err))
	}
}

// alreadySwept dedupes across passes so one expired document yields one
// defeater per claim, not one per tick.
func (s *ExpirySweeper) alreadySwept(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.swept[key] {
		return true
	}
	s.swept[key] = true
	return false
}
