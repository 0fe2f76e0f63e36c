package rates

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/model"
)

type stubSource struct {
	records []model.RateRecord
	err     error

	calls  atomic.Int64
	called chan struct{}
}

func (s *stubSource) RateRecords(ctx context.Context) ([]model.RateRecord, error) {
	s.calls.Add(1)
	if s.called != nil {
		select {
		case s.called <- struct{}{}:
		default:
		}
	}
	return s.records, s.err
}

func TestRateDefaultsBeforeRefresh(t *testing.T) {
	c := NewCache(&stubSource{}, zap.NewNop())

	if got := c.Rate(model.ProductTypeGiftCard); got != DefaultTable.GiftCard {
		t.Fatalf("giftcard rate = %v, want default %v", got, DefaultTable.GiftCard)
	}
	if got := c.Rate(model.ProductTypeVirtualCard); got != DefaultTable.Wallet {
		t.Fatalf("virtual-card rate = %v, want wallet default %v", got, DefaultTable.Wallet)
	}
}

func TestRefreshKeepsNewestPerCategory(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{
		records: []model.RateRecord{
			{Category: model.RateCategoryGiftCard, Value: 1700, CreatedAt: base},
			{Category: model.RateCategoryGiftCard, Value: 1900, CreatedAt: base.Add(time.Hour)},
			{Category: model.RateCategoryCrypto, Value: 1950, CreatedAt: base},
			{Category: "bogus", Value: 9999, CreatedAt: base},
			{Category: model.RateCategoryWallet, Value: -5, CreatedAt: base},
		},
	}
	c := NewCache(src, zap.NewNop())

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	table := c.Table()
	if table.GiftCard != 1900 {
		t.Fatalf("giftcard = %v, want newest record 1900", table.GiftCard)
	}
	if table.Crypto != 1950 {
		t.Fatalf("crypto = %v, want 1950", table.Crypto)
	}
	// Invalid wallet record skipped: last known value stays.
	if table.Wallet != DefaultTable.Wallet {
		t.Fatalf("wallet = %v, want untouched default %v", table.Wallet, DefaultTable.Wallet)
	}
}

func TestRefreshFailureKeepsStaleTable(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	c := NewCache(src, zap.NewNop())

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}

	for _, pt := range []model.ProductType{
		model.ProductTypeGiftCard,
		model.ProductTypeCrypto,
		model.ProductTypeWallet,
		model.ProductTypeVirtualCard,
	} {
		got := c.Rate(pt)
		if got <= 0 || math.IsNaN(got) {
			t.Fatalf("rate for %s after failed refresh = %v", pt, got)
		}
	}
	if !c.LastUpdated().IsZero() {
		t.Fatalf("failed refresh must not advance lastUpdated")
	}
}

func TestRefreshIfStaleHonorsTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{
		records: []model.RateRecord{
			{Category: model.RateCategoryGiftCard, Value: 1888, CreatedAt: now},
		},
		called: make(chan struct{}, 4),
	}
	c := NewCache(src, zap.NewNop(), WithClock(func() time.Time { return now }))

	// Zero lastUpdated: stale, triggers one async refresh.
	c.RefreshIfStale(context.Background())
	select {
	case <-src.called:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected refresh to be triggered")
	}

	// Wait until the refresh goroutine releases its slot.
	deadline := time.Now().Add(2 * time.Second)
	for c.refreshing.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("refresh did not finish")
		}
		time.Sleep(time.Millisecond)
	}

	// Fresh now: must not hit the source again.
	before := src.calls.Load()
	c.RefreshIfStale(context.Background())
	time.Sleep(50 * time.Millisecond)
	if src.calls.Load() != before {
		t.Fatalf("fresh cache triggered a refresh")
	}

	// Move past the TTL: stale again.
	now = now.Add(DefaultTTL + time.Second)
	c.RefreshIfStale(context.Background())
	select {
	case <-src.called:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected refresh after TTL expiry")
	}
}
