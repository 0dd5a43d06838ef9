package index

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
)

// Builder builds indexes, one postings map per pool task.
type Builder struct {
	pool *ants.Pool
}

// DefaultWorkers returns NumCPU/2, at least 1.
func DefaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// NewBuilder creates a builder with a pool of the given size (<= 0 selects DefaultWorkers).
func NewBuilder(workers int) (*Builder, error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create index build pool: %w", err)
	}
	return &Builder{pool: pool}, nil
}

// Release stops the worker pool.
func (b *Builder) Release() {
	b.pool.Release()
}

// Build indexes records into a new Index. Fields are built concurrently; the result is only
// returned once every field is complete.
func (b *Builder) Build(ctx context.Context, records []record.Record) (*Index, error) {
	type fieldResult struct {
		field Field
		p     postings
	}

	results := make([]fieldResult, len(Fields))
	var wg sync.WaitGroup
	for i, f := range Fields {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = fieldResult{field: f, p: buildField(f, records)}
		}
		if err := b.pool.Submit(task); err != nil {
			wg.Done()
			wg.Wait()
			return nil, failure.New(failure.KindIndex, failure.StageMatching,
				fmt.Errorf("submit %s build: %w", f, err))
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	ix := &Index{fields: make(map[Field]postings, len(Fields)), size: len(records)}
	for _, r := range results {
		ix.fields[r.field] = r.p
	}
	return ix, nil
}
