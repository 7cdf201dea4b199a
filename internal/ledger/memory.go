package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrEntryNotFound = errors.New("ledger entry not found")
	ErrInvalidKind   = errors.New("invalid ledger entry kind")
	ErrBadParent     = errors.New("parent sequence does not exist")
)

// MemoryLedger is an in-process append-only ledger. A single mutex
// serializes appends so sequence numbers are dense and monotonic; reads
// copy out so callers never observe an entry mid-append.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
	byCorr  map[uuid.UUID][]int
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byCorr: make(map[uuid.UUID][]int),
		now:    time.Now,
	}
}

func (l *MemoryLedger) Append(ctx context.Context, e *domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !domain.ValidEntryKind(string(e.Kind)) {
		return ErrInvalidKind
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	head := uint64(len(l.entries))
	for _, p := range e.ParentSeqs {
		if p == 0 || p > head {
			return ErrBadParent
		}
	}
	e.Sequence = head + 1
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	l.entries = append(l.entries, *e)
	l.byCorr[e.CorrelationID] = append(l.byCorr[e.CorrelationID], len(l.entries)-1)
	return nil
}

func (l *MemoryLedger) GetBySequence(ctx context.Context, seq uint64) (*domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq == 0 || seq > uint64(len(l.entries)) {
		return nil, ErrEntryNotFound
	}
	e := l.entries[seq-1]
	return &e, nil
}

// ReadFrom returns up to limit entries with sequence > from, in sequence
// order. An empty result means the caller has caught up.
func (l *MemoryLedger) ReadFrom(ctx context.Context, from uint64, limit int) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if from >= uint64(len(l.entries)) {
		return nil, nil
	}
	end := int(from) + limit
	if limit <= 0 || end > len(l.entries) {
		end = len(l.entries)
	}
	out := make([]domain.LedgerEntry, end-int(from))
	copy(out, l.entries[from:end])
	return out, nil
}

func (l *MemoryLedger) ReadByKind(ctx context.Context, kind domain.EntryKind, from uint64, limit int) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.LedgerEntry
	for i := int(from); i < len(l.entries); i++ {
		if l.entries[i].Kind != kind {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *MemoryLedger) Correlate(ctx context.Context, correlationID uuid.UUID) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	idxs := l.byCorr[correlationID]
	out := make([]domain.LedgerEntry, len(idxs))
	for i, idx := range idxs {
		out[i] = l.entries[idx]
	}
	return out, nil
}

func (l *MemoryLedger) Head(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries)), nil
}
