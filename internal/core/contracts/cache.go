package contracts

import (
	"context"
	"time"
)

// PreviewCache holds the rendered inbox view per owner for a short TTL.
// Consumers accept eventual consistency up to that TTL; writers invalidate
// on every send and read-receipt for both parties.
type PreviewCache interface {
	Get(ctx context.Context, owner string) ([]byte, bool, error)
	Set(ctx context.Context, owner string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, owners ...string) error
}
