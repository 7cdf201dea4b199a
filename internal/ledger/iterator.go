package ledger

import (
	"context"

	"github.com/credencelab/credence/internal/domain"
)

const defaultPageSize = 256

// Iterator pages forward through a ledger. It remembers the last sequence
// it returned, so a consumer can be stopped and restarted without losing
// its place by persisting Position.
type Iterator struct {
	store    domain.LedgerStore
	pageSize int
	pos      uint64
	buf      []domain.LedgerEntry
}

func NewIterator(store domain.LedgerStore, from uint64) *Iterator {
	return &Iterator{store: store, pageSize: defaultPageSize, pos: from}
}

// Position is the sequence of the last entry returned by Next.
func (it *Iterator) Position() uint64 { return it.pos }

// Next returns the next entry, or (nil, nil) when the iterator has caught
// up with the ledger head. Appends made after that are picked up by
// calling Next again.
func (it *Iterator) Next(ctx context.Context) (*domain.LedgerEntry, error) {
	if len(it.buf) == 0 {
		page, err := it.store.ReadFrom(ctx, it.pos, it.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return nil, nil
		}
		it.buf = page
	}
	e := it.buf[0]
	it.buf = it.buf[1:]
	it.pos = e.Sequence
	return &e, nil
}

// Each runs fn over every remaining entry until the head is reached or fn
// returns an error.
func (it *Iterator) Each(ctx context.Context, fn func(domain.LedgerEntry) error) error {
	for {
		e, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}
		if err := fn(*e); err != nil {
			return err
		}
	}
}
