package model

import (
	"testing"
	"time"
)

func TestSpotQuote_IsStale(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	q := &SpotQuote{Price: 100, FetchedAt: now.Add(-10 * time.Second), Source: "jupiter"}

	if q.Age(now) != 10*time.Second {
		t.Fatalf("Age=%v, want 10s", q.Age(now))
	}
	if q.IsStale(now, 30*time.Second) {
		t.Fatalf("10s 的报价在 30s 限制下不应过期")
	}
	if !q.IsStale(now, 5*time.Second) {
		t.Fatalf("10s 的报价在 5s 限制下应过期")
	}
	// maxAge<=0 表示不检查新鲜度
	if q.IsStale(now, 0) || q.IsStale(now, -time.Second) {
		t.Fatalf("maxAge<=0 时应永不过期")
	}
}
