package coverage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"testpilot/internal/types"
)

// DefaultHistoryLimit caps the history when no limit is configured.
const DefaultHistoryLimit = 50

// Entry is one recorded coverage measurement.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Snapshot  types.CoverageSnapshot `json:"snapshot"`
}

// Persister stores coverage history durably. Implemented by the sqlite
// store; nil disables persistence (in-memory only).
type Persister interface {
	AppendEntry(ctx context.Context, entry Entry, limit int) error
	LoadEntries(ctx context.Context, limit int) ([]Entry, error)
}

// History is a FIFO-bounded sequence of coverage entries. The length
// never exceeds the limit; recording past capacity evicts the single
// oldest entry. Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
	store   Persister
}

// NewHistory creates a history with the given cap. A non-positive
// limit falls back to DefaultHistoryLimit.
func NewHistory(limit int, store Persister) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, store: store}
}

// Load hydrates the in-memory history from the persister. Without a
// persister it is a no-op.
func (h *History) Load(ctx context.Context) error {
	if h.store == nil {
		return nil
	}

	entries, err := h.store.LoadEntries(ctx, h.limit)
	if err != nil {
		return fmt.Errorf("loading coverage history: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = entries
	h.trimLocked()
	return nil
}

// Record appends a snapshot, evicts past capacity, and persists the
// new entry.
func (h *History) Record(ctx context.Context, snap *types.CoverageSnapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot record nil snapshot")
	}

	entry := Entry{Timestamp: time.Now(), Snapshot: *snap}

	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.trimLocked()
	h.mu.Unlock()

	if h.store != nil {
		if err := h.store.AppendEntry(ctx, entry, h.limit); err != nil {
			return fmt.Errorf("persisting coverage entry: %w", err)
		}
	}
	return nil
}

// trimLocked evicts oldest entries until the cap holds. Caller must
// hold h.mu.
func (h *History) trimLocked() {
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append([]Entry(nil), h.entries[over:]...)
	}
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Latest returns the most recent entry, or nil if empty.
func (h *History) Latest() *Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return nil
	}
	e := h.entries[len(h.entries)-1]
	return &e
}

// Previous returns the second most recent entry, or nil.
func (h *History) Previous() *Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) < 2 {
		return nil
	}
	e := h.entries[len(h.entries)-2]
	return &e
}

// Entries returns a copy of the recorded entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

// CurrentTrend compares the two most recent entries. With fewer than
// two entries the trend is stable.
func (h *History) CurrentTrend() TrendDirection {
	latest := h.Latest()
	previous := h.Previous()
	if latest == nil || previous == nil {
		return TrendStable
	}
	return Trend(latest.Snapshot.Lines, previous.Snapshot.Lines)
}
