package denylist

import (
	"context"
	"time"
)

// Denylist records revoked token IDs until their natural expiry, after which
// entries may be purged.
type Denylist interface {
	Add(ctx context.Context, tokenID string, expiresAt time.Time) error
	Contains(ctx context.Context, tokenID string) (bool, error)
	Close() error
}
