package stripecache

import (
	"bytes"
	"testing"
)

func TestStripeCache_HitAndMiss(t *testing.T) {
	cache := New(1024 * 1024)

	key := KeyOf("stripes", "[0,100)", "1", "sub", "full")
	if _, ok := cache.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	value := []byte(`[{"span":[100,500]}]`)
	cache.Put(key, value)

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("expected %q, got %q", value, got)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", cache.Len())
	}
}

func TestStripeCache_RoundTripsIncompressibleValues(t *testing.T) {
	cache := New(1024 * 1024)

	value := make([]byte, 257)
	for i := range value {
		value[i] = byte(i * 31)
	}
	key := KeyOf("raw")
	cache.Put(key, value)

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, value) {
		t.Fatal("value corrupted by compression round trip")
	}
}

// noise returns bytes snappy cannot shrink, so entry sizes track value sizes.
func noise(seed byte, n int) []byte {
	out := make([]byte, n)
	x := uint32(seed) + 1
	for i := range out {
		x = x*1664525 + 1013904223
		out[i] = byte(x >> 24)
	}
	return out
}

func TestStripeCache_LRUEviction(t *testing.T) {
	// Budget fits two of the three ~200-byte values.
	cache := New(500)

	for i, name := range []string{"a", "b", "c"} {
		cache.Put(KeyOf(name), noise(byte(i), 200))
	}

	if _, ok := cache.Get(KeyOf("a")); ok {
		t.Fatal("expected eviction of 'a'")
	}
	if _, ok := cache.Get(KeyOf("b")); !ok {
		t.Fatal("expected 'b' to be cached")
	}
	if _, ok := cache.Get(KeyOf("c")); !ok {
		t.Fatal("expected 'c' to be cached")
	}
	if cache.Size() > 500 {
		t.Fatalf("size %d exceeds budget", cache.Size())
	}
}

func TestStripeCache_GetPromotes(t *testing.T) {
	cache := New(500)

	cache.Put(KeyOf("a"), noise(1, 200))
	cache.Put(KeyOf("b"), noise(2, 200))

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := cache.Get(KeyOf("a")); !ok {
		t.Fatal("expected 'a' cached")
	}
	cache.Put(KeyOf("c"), noise(3, 200))

	if _, ok := cache.Get(KeyOf("a")); !ok {
		t.Fatal("expected 'a' to survive eviction after promotion")
	}
	if _, ok := cache.Get(KeyOf("b")); ok {
		t.Fatal("expected 'b' to be the evicted entry")
	}
}

func TestStripeCache_Purge(t *testing.T) {
	cache := New(1024)

	cache.Put(KeyOf("a"), []byte("one"))
	cache.Put(KeyOf("b"), []byte("two"))
	cache.Purge()

	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
	if cache.Size() != 0 {
		t.Fatalf("expected zero size, got %d", cache.Size())
	}
	if _, ok := cache.Get(KeyOf("a")); ok {
		t.Fatal("expected miss after purge")
	}
}

func TestStripeCache_KeyOfSeparatesParts(t *testing.T) {
	if KeyOf("ab", "c") == KeyOf("a", "bc") {
		t.Fatal("adjacent parts must not collide")
	}
	if KeyOf("a", "b") != KeyOf("a", "b") {
		t.Fatal("equal parts must produce equal keys")
	}
}

func TestStripeCache_PutReplacesExisting(t *testing.T) {
	cache := New(1024)
	key := KeyOf("k")

	cache.Put(key, []byte("old"))
	cache.Put(key, []byte("new"))

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "new" {
		t.Fatalf("expected replacement, got %q", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", cache.Len())
	}
}
