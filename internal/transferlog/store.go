package transferlog

import (
	"context"
)

// Store persists transfer records. Upsert reports whether the record was
// newly inserted; re-upserting an identical record is a no-op, while an ID
// collision with different content is ErrRecordMismatch.
type Store interface {
	Upsert(ctx context.Context, r Record) (bool, error)
	Get(ctx context.Context, id [32]byte) (Record, error)
	ListByDirection(ctx context.Context, dir Direction, limit int) ([]Record, error)
}
