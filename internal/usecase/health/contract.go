package health

import (
	"context"

	"github.com/kailas-cloud/contactdex/internal/index"
)

// DBPinger checks history store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexSource exposes the published index snapshot.
type IndexSource interface {
	Current() *index.Snapshot
}
