package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := NewStore(rdb, 5*time.Minute, time.Minute)
	return st, mr
}

func TestMarkStepUsed(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	first, err := st.MarkStepUsed(ctx, "JBSWY3DPEHPK3PXP", 100)
	if err != nil {
		t.Fatalf("MarkStepUsed: %v", err)
	}
	if !first {
		t.Error("MarkStepUsed first = false, want true")
	}
	again, _ := st.MarkStepUsed(ctx, "JBSWY3DPEHPK3PXP", 100)
	if again {
		t.Error("MarkStepUsed replay = true, want false")
	}
	other, _ := st.MarkStepUsed(ctx, "JBSWY3DPEHPK3PXP", 101)
	if !other {
		t.Error("MarkStepUsed(next step) = false, want true")
	}
	otherSeed, _ := st.MarkStepUsed(ctx, "GEZDGNBVGY3TQOJQ", 100)
	if !otherSeed {
		t.Error("MarkStepUsed(other seed) = false, want true")
	}
}

func TestMarkStepUsed_TTLAndNoPlainSeed(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	_, _ = st.MarkStepUsed(ctx, "JBSWY3DPEHPK3PXP", 1)
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys = %v, want 1", keys)
	}
	if strings.Contains(keys[0], "JBSWY3DPEHPK3PXP") {
		t.Errorf("key %q contains the plain seed", keys[0])
	}
	if ttl := mr.TTL(keys[0]); ttl != 5*time.Minute {
		t.Errorf("TTL = %v, want 5m", ttl)
	}
	mr.FastForward(6 * time.Minute)
	if first, _ := st.MarkStepUsed(ctx, "JBSWY3DPEHPK3PXP", 1); !first {
		t.Error("marker should expire")
	}
}

func TestIncrRateIP(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	n, err := st.IncrRateIP(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("IncrRateIP: %v", err)
	}
	if n != 1 {
		t.Errorf("IncrRateIP = %d, want 1", n)
	}
	n, _ = st.IncrRateIP(ctx, "1.2.3.4")
	if n != 2 {
		t.Errorf("IncrRateIP second = %d, want 2", n)
	}
	n, _ = st.IncrRateIP(ctx, "5.6.7.8")
	if n != 1 {
		t.Errorf("IncrRateIP other ip = %d, want 1", n)
	}
}

func TestIncrRateIP_WindowNotExtended(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()
	ctx := context.Background()

	_, _ = st.IncrRateIP(ctx, "1.2.3.4")
	mr.FastForward(40 * time.Second)
	n, _ := st.IncrRateIP(ctx, "1.2.3.4")
	if n != 2 {
		t.Fatalf("IncrRateIP = %d, want 2", n)
	}
	if ttl := mr.TTL(rateIPPrefix + "1.2.3.4"); ttl != 20*time.Second {
		t.Errorf("TTL after second hit = %v, want 20s", ttl)
	}

	// Hits past the limit do not keep the window open.
	mr.FastForward(21 * time.Second)
	if n, _ := st.IncrRateIP(ctx, "1.2.3.4"); n != 1 {
		t.Errorf("IncrRateIP after window = %d, want 1", n)
	}
}

func TestClient(t *testing.T) {
	st, mr := newTestStore(t)
	defer mr.Close()
	if st.Client() == nil {
		t.Fatal("Client() = nil")
	}
}
