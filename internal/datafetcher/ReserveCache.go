package datafetcher

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/elys-network/vault-valuator/internal/metrics"
	"github.com/elys-network/vault-valuator/internal/types"
)

// PairFetcher reads live pair state. *Client implements it.
type PairFetcher interface {
	FetchPairState(ctx context.Context, pair string) (types.PairState, error)
}

// ReserveCache keeps recent pair reads for a bounded time.
// Entries older than the TTL are never returned. Safe for concurrent use.
type ReserveCache struct {
	entries *expirable.LRU[string, types.PairState]
	ttl     time.Duration
}

func NewReserveCache(size int, ttl time.Duration) (*ReserveCache, error) {
	if size <= 0 {
		return nil, errors.New("reserve cache size must be positive")
	}
	if ttl <= 0 {
		return nil, errors.New("reserve cache TTL must be positive")
	}
	return &ReserveCache{
		entries: expirable.NewLRU[string, types.PairState](size, nil, ttl),
		ttl:     ttl,
	}, nil
}

func (c *ReserveCache) TTL() time.Duration { return c.ttl }

func (c *ReserveCache) Get(pair string) (types.PairState, bool) {
	state, ok := c.entries.Get(types.NormalizeAddress(pair))
	if ok {
		metrics.ReserveCacheHits.Inc()
	} else {
		metrics.ReserveCacheMisses.Inc()
	}
	return state, ok
}

func (c *ReserveCache) Put(state types.PairState) {
	c.entries.Add(types.NormalizeAddress(state.Address), state)
}

// Invalidate drops a pair, e.g. after a quote was executed against it.
func (c *ReserveCache) Invalidate(pair string) {
	c.entries.Remove(types.NormalizeAddress(pair))
}

func (c *ReserveCache) Purge() { c.entries.Purge() }

func (c *ReserveCache) Len() int { return c.entries.Len() }

// GetOrFetch returns the cached state of pair or reads it through fetcher.
// Failed reads are not cached.
func (c *ReserveCache) GetOrFetch(ctx context.Context, pair string, fetcher PairFetcher) (types.PairState, error) {
	if state, ok := c.Get(pair); ok {
		return state, nil
	}
	state, err := fetcher.FetchPairState(ctx, pair)
	if err != nil {
		return types.PairState{}, err
	}
	c.Put(state)
	return state, nil
}
