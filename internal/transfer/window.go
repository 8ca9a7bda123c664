package transfer

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

// Defaults for NewPairWindow.
const (
	DefaultWindow     = 3 * time.Minute
	DefaultBucketSize = 8
	// DefaultMaxEvents caps the events held across all buckets.
	DefaultMaxEvents = 1 << 16
)

type event struct {
	id  string
	dir models.Direction
	ts  int64
}

// PairWindow remembers recent transactions per exact amount and cancels a
// new transaction against an opposite-direction one of the same amount
// within the window of its own timestamp. Staleness is judged against the
// incoming timestamp within one amount, so unrelated later messages never
// evict an older leg. It is safe for concurrent use.
type PairWindow struct {
	window       int64 // millis
	maxPerBucket int
	maxEvents    int

	mu      sync.Mutex
	buckets map[string][]event
	total   int
}

// NewPairWindow creates a window. Non-positive arguments select the defaults.
func NewPairWindow(window time.Duration, maxPerBucket int) *PairWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxPerBucket <= 0 {
		maxPerBucket = DefaultBucketSize
	}
	return &PairWindow{
		window:       window.Milliseconds(),
		maxPerBucket: maxPerBucket,
		maxEvents:    DefaultMaxEvents,
		buckets:      make(map[string][]event),
	}
}

// bucketKey is the exact amount with trailing zeros dropped, so 1500 and
// 1500.00 share a bucket but 100.004 and 100.00 do not.
func bucketKey(amount decimal.Decimal) string {
	return amount.Abs().String()
}

// Observe records a transaction and reports the ID of the earlier
// transaction it cancels against, if any. A matched event is consumed so it
// cancels at most one other. Only CREDIT and DEBIT take part.
func (w *PairWindow) Observe(id string, amount decimal.Decimal, dir models.Direction, ts int64) (string, bool) {
	opposite := dir.Opposite()
	if opposite == "" {
		return "", false
	}
	key := bucketKey(amount)

	w.mu.Lock()
	defer w.mu.Unlock()

	events := w.prune(w.buckets[key], ts)

	best := -1
	var bestGap int64
	for i, e := range events {
		if e.dir != opposite {
			continue
		}
		gap := abs(ts - e.ts)
		if gap > w.window {
			continue
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best >= 0 {
		matched := events[best].id
		events = append(events[:best], events[best+1:]...)
		w.store(key, events)
		return matched, true
	}

	events = append(events, event{id: id, dir: dir, ts: ts})
	if len(events) > w.maxPerBucket {
		events = events[len(events)-w.maxPerBucket:]
	}
	w.store(key, events)

	if w.total > w.maxEvents {
		w.evictOldest()
	}
	return "", false
}

// Len returns the number of events currently held.
func (w *PairWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// prune drops events too old to pair with a message at ts. Events newer
// than ts are kept whatever their age gap. Callers hold mu.
func (w *PairWindow) prune(events []event, ts int64) []event {
	cutoff := ts - w.window
	kept := make([]event, 0, len(events))
	for _, e := range events {
		if e.ts >= cutoff {
			kept = append(kept, e)
		}
	}
	return kept
}

// store replaces a bucket and keeps total in step. Callers hold mu.
func (w *PairWindow) store(key string, events []event) {
	w.total += len(events) - len(w.buckets[key])
	if len(events) == 0 {
		delete(w.buckets, key)
		return
	}
	w.buckets[key] = events
}

// evictOldest bounds memory by dropping the oldest events across all
// buckets until three quarters of maxEvents remain. Callers hold mu.
func (w *PairWindow) evictOldest() {
	all := make([]int64, 0, w.total)
	for _, events := range w.buckets {
		for _, e := range events {
			all = append(all, e.ts)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	drop := w.total - w.maxEvents*3/4
	if drop <= 0 {
		return
	}
	cutoff := all[drop-1]
	for key, events := range w.buckets {
		kept := make([]event, 0, len(events))
		for _, e := range events {
			if e.ts > cutoff {
				kept = append(kept, e)
			}
		}
		w.store(key, kept)
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
