package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrProducerMissing = errors.New("producer is required")
	ErrPredictedRange  = errors.New("predicted confidence must be in [0,1]")
	ErrNoBuckets       = errors.New("bucket count must be positive")
)

const (
	DefaultBuckets       = 10
	DefaultEpsilon       = 0.1
	DefaultDelta         = 0.05
	DefaultWilsonLevel   = 0.95
	defaultReportTTL     = 30 * time.Second
	defaultCacheSweep    = time.Minute
	defaultLedgerPageCap = 0 // unbounded
)

// Tracker measures how well each producer's stated confidence matches
// reality. It holds no state of its own: every report is rebuilt from the
// ledger's outcome entries, with a short TTL cache in front because
// reports over a long ledger are not free.
type Tracker struct {
	ledger  domain.LedgerStore
	logger  *zap.Logger
	cache   *gocache.Cache
	buckets int
	epsilon float64
	delta   float64
	level   float64
}

type Option func(*Tracker)

func WithBuckets(n int) Option {
	return func(t *Tracker) { t.buckets = n }
}

func WithPACBounds(eps, d float64) Option {
	return func(t *Tracker) { t.epsilon, t.delta = eps, d }
}

func NewTracker(ledger domain.LedgerStore, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		ledger:  ledger,
		logger:  logger,
		cache:   gocache.New(defaultReportTTL, defaultCacheSweep),
		buckets: DefaultBuckets,
		epsilon: DefaultEpsilon,
		delta:   DefaultDelta,
		level:   DefaultWilsonLevel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordOutcome appends a verified outcome to the ledger and drops the
// producer's cached report so the next read reflects it.
func (t *Tracker) RecordOutcome(ctx context.Context, o domain.Outcome) (uint64, error) {
	if o.Producer == "" {
		return 0, ErrProducerMissing
	}
	if o.Predicted < 0 || o.Predicted > 1 || math.IsNaN(o.Predicted) {
		return 0, ErrPredictedRange
	}
	if o.VerifiedAt.IsZero() {
		o.VerifiedAt = time.Now().UTC()
	}

	payload, err := domain.MarshalPayload(domain.OutcomePayload{
		ClaimID:        o.ClaimID,
		Producer:       o.Producer,
		PredictedPoint: o.Predicted,
		Actual:         o.Actual,
		VerifiedAt:     o.VerifiedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("encode outcome: %w", err)
	}
	entry := domain.LedgerEntry{
		Kind:          domain.EntryOutcome,
		Payload:       payload,
		CorrelationID: uuid.New(),
	}
	if err := t.ledger.Append(ctx, &entry); err != nil {
		return 0, fmt.Errorf("append outcome: %w", err)
	}

	t.cache.Delete(o.Producer)
	t.logger.Debug("recorded outcome",
		zap.String("producer", o.Producer),
		zap.String("claim_id", o.ClaimID.String()),
		zap.Float64("predicted", o.Predicted),
		zap.Bool("actual", o.Actual),
		zap.Uint64("sequence", entry.Sequence))
	return entry.Sequence, nil
}

// Report rebuilds the producer's calibration report from the ledger.
func (t *Tracker) Report(ctx context.Context, producer string) (*domain.CalibrationReport, error) {
	if producer == "" {
		return nil, ErrProducerMissing
	}
	if t.buckets <= 0 {
		return nil, ErrNoBuckets
	}
	if cached, ok := t.cache.Get(producer); ok {
		return cached.(*domain.CalibrationReport), nil
	}

	outcomes, err := t.loadOutcomes(ctx, producer)
	if err != nil {
		return nil, err
	}
	report := t.build(producer, outcomes)
	t.cache.SetDefault(producer, report)

	t.logger.Info("calibration report built",
		zap.String("producer", producer),
		zap.Int("outcomes", report.Outcomes),
		zap.Float64("ece", report.ECE),
		zap.String("sufficiency", string(report.Sufficiency)))
	return report, nil
}

func (t *Tracker) loadOutcomes(ctx context.Context, producer string) ([]domain.OutcomePayload, error) {
	entries, err := t.ledger.ReadByKind(ctx, domain.EntryOutcome, 0, defaultLedgerPageCap)
	if err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	var out []domain.OutcomePayload
	for _, e := range entries {
		var p domain.OutcomePayload
		if err := unmarshalPayload(e, &p); err != nil {
			t.logger.Warn("skipping malformed outcome entry",
				zap.Uint64("sequence", e.Sequence), zap.Error(err))
			continue
		}
		if p.Producer == producer {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *Tracker) build(producer string, outcomes []domain.OutcomePayload) *domain.CalibrationReport {
	report := &domain.CalibrationReport{
		Producer:    producer,
		Outcomes:    len(outcomes),
		MinSamples:  MinSamples(t.epsilon, t.delta),
		GeneratedAt: time.Now().UTC(),
	}

	width := 1.0 / float64(t.buckets)
	preds := make([][]float64, t.buckets)
	hits := make([]int, t.buckets)
	for _, o := range outcomes {
		b := bucketIndex(o.PredictedPoint, t.buckets)
		preds[b] = append(preds[b], o.PredictedPoint)
		if o.Actual {
			hits[b]++
		}
	}

	var eceNum float64
	var brierSum float64
	for _, o := range outcomes {
		actual := 0.0
		if o.Actual {
			actual = 1
		}
		d := o.PredictedPoint - actual
		brierSum += d * d
	}

	for b := 0; b < t.buckets; b++ {
		bucket := domain.CalibrationBucket{
			Low:  float64(b) * width,
			High: float64(b+1) * width,
		}
		n := len(preds[b])
		bucket.Count = n
		if n > 0 {
			mean, err := stats.Mean(preds[b])
			if err == nil {
				bucket.MeanPredicted = mean
			}
			bucket.ObservedRate = float64(hits[b]) / float64(n)
			bucket.WilsonLow, bucket.WilsonHigh = Wilson(hits[b], n, t.level)
			eceNum += float64(n) * math.Abs(bucket.ObservedRate-bucket.MeanPredicted)
		} else {
			bucket.WilsonLow, bucket.WilsonHigh = 0, 1
		}
		report.Buckets = append(report.Buckets, bucket)
	}

	if len(outcomes) > 0 {
		report.ECE = eceNum / float64(len(outcomes))
		report.Brier = brierSum / float64(len(outcomes))
	}
	report.Sufficiency = domain.SufficiencyInsufficient
	if len(outcomes) >= report.MinSamples {
		report.Sufficiency = domain.SufficiencySufficient
	}
	return report
}

// bucketIndex maps a prediction in [0,1] to its bucket; 1.0 lands in the
// last bucket rather than a phantom one past the end.
func bucketIndex(p float64, buckets int) int {
	b := int(p * float64(buckets))
	if b >= buckets {
		b = buckets - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}

func unmarshalPayload(e domain.LedgerEntry, into *domain.OutcomePayload) error {
	if len(e.Payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(e.Payload, into)
}
