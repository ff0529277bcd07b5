package secrets

import (
	"sync"
	"testing"
	"time"
)

func TestCache_PutAndGet(t *testing.T) {
	cache := NewCache[string](2 * time.Second)
	key := "prod/tushare"

	if _, ok := cache.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Put(key, "tok-123")

	if v, ok := cache.Get(key); !ok {
		t.Fatal("expected cache hit")
	} else if v != "tok-123" {
		t.Errorf("expected tok-123, got %s", v)
	}
}

func TestCache_Expiration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewCache[string](time.Minute)
	cache.now = func() time.Time { return now }

	cache.Put("k", "v")
	now = now.Add(61 * time.Second)

	if _, ok := cache.Get("k"); ok {
		t.Fatal("expected expired cache entry")
	}
	if len(cache.data) != 0 {
		t.Errorf("expected expired entry removed, %d left", len(cache.data))
	}
}

func TestCache_Bust(t *testing.T) {
	cache := NewCache[string](5 * time.Second)
	cache.Put("k", "v")
	cache.Bust("k")
	if _, ok := cache.Get("k"); ok {
		t.Fatal("expected cache miss after bust")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache[int](2 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cache.Put("k", n)
			cache.Get("k")
		}(i)
	}
	wg.Wait()

	if _, ok := cache.Get("k"); !ok {
		t.Fatal("expected value after concurrent writes")
	}
}
