package cache

import (
	"context"
	"time"
)

// ViewCache holds rendered floor and kitchen views so polling clients do not
// hit the database on every refresh. Entries are invalidated on any write
// that changes the underlying state.
type ViewCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

func FloorViewKey(unitID string) string {
	return "view:tables:" + unitID
}

func KitchenViewKey(unitID string) string {
	return "view:kitchen:" + unitID
}

type NoopViewCache struct{}

func (NoopViewCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopViewCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (NoopViewCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}
