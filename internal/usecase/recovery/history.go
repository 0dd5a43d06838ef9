package recovery

import (
	"sync"
	"time"

	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
)

// DefaultHistoryCapacity is the number of attempts kept.
const DefaultHistoryCapacity = 100

const recentEntries = 10

// Entry is one recovery attempt.
type Entry struct {
	At       time.Time
	Kind     failure.Kind
	Strategy Strategy
	Query    string
	Attempt  int
	Success  bool
	Message  string
}

// Stats summarizes the attempts currently held in the history.
type Stats struct {
	Total           int
	ErrorsByType    map[failure.Kind]int
	MostCommonError failure.Kind
	LastHour        int
	LastDay         int
	Recovered       int
	// Recent lists the newest entries first.
	Recent []Entry
}

// History is a fixed-capacity ring of recovery attempts. It is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewHistory creates a history holding up to capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{entries: make([]Entry, capacity)}
}

// Add appends e, overwriting the oldest entry when full.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Entries returns the held entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		out := make([]Entry, h.next)
		copy(out, h.entries[:h.next])
		return out
	}
	out := make([]Entry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	return append(out, h.entries[:h.next]...)
}

// Stats aggregates the held entries relative to now.
func (h *History) Stats(now time.Time) Stats {
	entries := h.Entries()
	s := Stats{Total: len(entries), ErrorsByType: make(map[failure.Kind]int)}

	for _, e := range entries {
		s.ErrorsByType[e.Kind]++
		if e.Success {
			s.Recovered++
		}
		age := now.Sub(e.At)
		if age <= time.Hour {
			s.LastHour++
		}
		if age <= 24*time.Hour {
			s.LastDay++
		}
	}

	best := 0
	for _, k := range failure.Kinds {
		if n := s.ErrorsByType[k]; n > best {
			best, s.MostCommonError = n, k
		}
	}

	n := min(recentEntries, len(entries))
	s.Recent = make([]Entry, n)
	for i := range n {
		s.Recent[i] = entries[len(entries)-1-i]
	}
	return s
}
