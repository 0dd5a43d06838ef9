package index

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
)

var (
	// ErrDuplicateID signals two records sharing an ID.
	ErrDuplicateID = errors.New("duplicate record ID")
	// ErrRecordNotFound signals a missing record.
	ErrRecordNotFound = errors.New("record not found")
	// ErrStaleIndex signals an index built for a different record set.
	ErrStaleIndex = errors.New("index does not match record snapshot")
)

// Snapshot is a published (records, index) pair. Snapshots are never mutated.
type Snapshot struct {
	Generation    uint64
	Records       []record.Record
	Index         *Index
	BuiltAt       time.Time
	BuildDuration time.Duration
}

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.Records) }

// Lookup runs MultiSearch and checks every position against the snapshot.
func (s *Snapshot) Lookup(term string, fields ...Field) ([]int, error) {
	if s.Index == nil || s.Index.Size() != len(s.Records) {
		return nil, failure.New(failure.KindIndex, failure.StageMatching, ErrStaleIndex)
	}
	hits := s.Index.MultiSearch(term, fields...)
	for _, pos := range hits {
		if pos < 0 || pos >= len(s.Records) {
			return nil, failure.Newf(failure.KindIndex, failure.StageMatching,
				"position %d outside snapshot of %d records", pos, len(s.Records))
		}
	}
	return hits, nil
}

// Metrics are the optional collectors a Manager reports to.
type Metrics struct {
	BuildDuration prometheus.Observer
	Terms         *prometheus.GaugeVec // label: field
	Records       prometheus.Gauge
}

// Manager owns the current snapshot. Writers are serialized; readers load the snapshot
// pointer without locking.
type Manager struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	builder *Builder
	metrics Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewManager creates a manager holding an empty snapshot.
func NewManager(builder *Builder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{builder: builder, logger: logger, now: time.Now}
	m.current.Store(&Snapshot{Index: Empty(), BuiltAt: m.now()})
	return m
}

// WithMetrics attaches prometheus collectors.
func (m *Manager) WithMetrics(metrics Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Current returns the published snapshot.
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// BuildIndex replaces the record set and rebuilds the index wholesale.
func (m *Manager) BuildIndex(ctx context.Context, records []record.Record) (*Snapshot, error) {
	if err := checkUniqueIDs(records); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuildLocked(ctx, slices.Clone(records))
}

// AddRecord appends one record and indexes it incrementally.
func (m *Manager) AddRecord(_ context.Context, r record.Record) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current.Load()
	for _, existing := range cur.Records {
		if existing.ID() == r.ID() {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, r.ID())
		}
	}

	start := m.now()
	records := append(slices.Clone(cur.Records), r)
	ix := cur.Index.WithRecord(len(records)-1, r)
	return m.publishLocked(records, ix, m.now().Sub(start)), nil
}

// RemoveRecord drops the record with the given ID and rebuilds the index.
func (m *Manager) RemoveRecord(ctx context.Context, id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current.Load()
	idx := slices.IndexFunc(cur.Records, func(r record.Record) bool { return r.ID() == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrRecordNotFound, id)
	}
	records := slices.Delete(slices.Clone(cur.Records), idx, idx+1)
	return m.rebuildLocked(ctx, records)
}

// OptimizeIndex drops empty posting sets from the current index and returns how many went.
func (m *Manager) OptimizeIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current.Load()
	ix, dropped := cur.Index.Optimize()
	if dropped == 0 {
		return 0
	}
	m.publishLocked(cur.Records, ix, cur.BuildDuration)
	m.logger.Info("index optimized", zap.Int("dropped_terms", dropped))
	return dropped
}

// Search looks term up in one field of the current index.
func (m *Manager) Search(term string, f Field) []int {
	return m.Current().Index.Search(term, f)
}

// MultiSearch looks term up across fields of the current index.
func (m *Manager) MultiSearch(term string, fields ...Field) []int {
	return m.Current().Index.MultiSearch(term, fields...)
}

func (m *Manager) rebuildLocked(ctx context.Context, records []record.Record) (*Snapshot, error) {
	start := m.now()
	ix, err := m.builder.Build(ctx, records)
	if err != nil {
		return nil, err
	}
	snap := m.publishLocked(records, ix, m.now().Sub(start))
	m.logger.Debug("index rebuilt",
		zap.Uint64("generation", snap.Generation),
		zap.Int("records", len(records)),
		zap.Duration("duration", snap.BuildDuration),
	)
	return snap, nil
}

func (m *Manager) publishLocked(records []record.Record, ix *Index, took time.Duration) *Snapshot {
	prev := m.current.Load()
	snap := &Snapshot{
		Generation:    prev.Generation + 1,
		Records:       records,
		Index:         ix,
		BuiltAt:       m.now(),
		BuildDuration: took,
	}
	m.current.Store(snap)
	m.observe(snap)
	return snap
}

func (m *Manager) observe(snap *Snapshot) {
	if m.metrics.BuildDuration != nil {
		m.metrics.BuildDuration.Observe(snap.BuildDuration.Seconds())
	}
	if m.metrics.Records != nil {
		m.metrics.Records.Set(float64(len(snap.Records)))
	}
	if m.metrics.Terms != nil {
		for f, n := range snap.Index.Stats().Terms {
			m.metrics.Terms.WithLabelValues(string(f)).Set(float64(n))
		}
	}
}

func checkUniqueIDs(records []record.Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.ID()]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, r.ID())
		}
		seen[r.ID()] = struct{}{}
	}
	return nil
}
