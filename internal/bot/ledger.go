package bot

import "container/list"

// ledger records mention ids that have already been handed to the processor,
// in insertion order, so one monitor instance never processes the same
// notification twice.
//
// The ledger is bounded: once it grows past its cap the oldest half is
// dropped, which accepts a small chance of reprocessing very old duplicates
// in exchange for bounded memory. Owned by the monitor goroutine, no locking.
type ledger struct {
	maxEntries int
	ids        map[int64]*list.Element
	order      *list.List
}

func newLedger(maxEntries int) *ledger {
	return &ledger{
		maxEntries: maxEntries,
		ids:        make(map[int64]*list.Element),
		order:      list.New(),
	}
}

// Seen reports whether the id was already marked.
func (l *ledger) Seen(id int64) bool {
	_, exists := l.ids[id]
	return exists
}

// Mark records an id at the newest position. Marking a known id is a no-op.
func (l *ledger) Mark(id int64) {
	if _, exists := l.ids[id]; exists {
		return
	}
	l.ids[id] = l.order.PushBack(id)
}

// Len returns the number of marked ids.
func (l *ledger) Len() int {
	return l.order.Len()
}

// Trim drops the oldest entries down to half capacity once the cap is
// exceeded, and returns how many entries were removed.
func (l *ledger) Trim() int {
	if l.order.Len() <= l.maxEntries {
		return 0
	}

	removed := 0
	for l.order.Len() > l.maxEntries/2 {
		front := l.order.Front()
		if front == nil {
			break
		}
		id := front.Value.(int64)
		l.order.Remove(front)
		delete(l.ids, id)
		removed++
	}

	return removed
}
