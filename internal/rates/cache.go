// Package rates maintains the cached USD-to-local-currency multipliers used
// to price the catalog.
package rates

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/model"
)

// DefaultTTL is how long a cached table is considered fresh.
const DefaultTTL = 5 * time.Minute

const refreshTimeout = 10 * time.Second

// DefaultTable applies until the first successful refresh.
var DefaultTable = model.RateTable{
	GiftCard: 1850,
	Crypto:   1900,
	Wallet:   1800,
}

// Source supplies the historical rate records the cache is refreshed from.
type Source interface {
	RateRecords(ctx context.Context) ([]model.RateRecord, error)
}

// Cache holds the current rate table and refreshes it from a Source once the
// table is older than the TTL. Refresh failures are logged and the previous
// table stays authoritative, so pricing never observes a missing rate.
type Cache struct {
	source Source
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu          sync.RWMutex
	table       model.RateTable
	lastUpdated time.Time

	refreshing atomic.Bool
}

// Option customizes a Cache.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithClock overrides the time source; tests use it to control staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaults overrides the table used before the first refresh.
func WithDefaults(table model.RateTable) Option {
	return func(c *Cache) { c.table = table }
}

// NewCache creates a cache seeded with the default table. It performs no I/O;
// the caller primes it explicitly via Refresh.
func NewCache(source Source, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		logger: logger,
		ttl:    DefaultTTL,
		now:    time.Now,
		table:  DefaultTable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rate returns the cached multiplier for the given product type. It never
// returns zero or NaN: unseen categories keep their default or last known
// value.
func (c *Cache) Rate(t model.ProductType) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.For(t.RateCategory())
}

// Table returns a copy of the full cached rate table.
func (c *Cache) Table() model.RateTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// LastUpdated returns the time of the last successful refresh, zero if none.
func (c *Cache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

// RefreshIfStale starts an asynchronous refresh when the table is older than
// the TTL. It returns immediately; the caller proceeds with the current table
// and only later computations see the refreshed values. Overlapping refreshes
// are collapsed into one.
func (c *Cache) RefreshIfStale(ctx context.Context) {
	c.mu.RLock()
	stale := c.now().Sub(c.lastUpdated) > c.ttl
	c.mu.RUnlock()

	if !stale {
		return
	}
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}

	// Detached from the caller's context: a finished request must not cancel
	// the refresh it triggered.
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)

	go func() {
		defer cancel()
		defer c.refreshing.Store(false)

		if err := c.Refresh(bg); err != nil {
			c.logger.Warn("rate refresh failed, serving cached table", zap.Error(err))
		}
	}()
}

// Refresh synchronously pulls the rate history and updates the table. For
// each category only the most recent record is retained; categories absent
// from the response keep their last known value.
func (c *Cache) Refresh(ctx context.Context) error {
	records, err := c.source.RateRecords(ctx)
	if err != nil {
		return err
	}

	latest := make(map[model.RateCategory]model.RateRecord)
	for _, rec := range records {
		if !rec.Category.Valid() || !validRate(rec.Value) {
			continue
		}
		if cur, ok := latest[rec.Category]; !ok || rec.CreatedAt.After(cur.CreatedAt) {
			latest[rec.Category] = rec
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for cat, rec := range latest {
		switch cat {
		case model.RateCategoryGiftCard:
			c.table.GiftCard = rec.Value
		case model.RateCategoryCrypto:
			c.table.Crypto = rec.Value
		case model.RateCategoryWallet:
			c.table.Wallet = rec.Value
		}
	}
	c.lastUpdated = c.now()

	return nil
}

func validRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
