package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestByteCache_GetSet(t *testing.T) {
	c := New(10, 0)
	defer c.Close()

	c.Set("tiles/demo/base/1/2/3", []byte("payload"), "application/x-protobuf", time.Minute)

	entry, ok := c.Get("tiles/demo/base/1/2/3")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if !bytes.Equal(entry.Payload, []byte("payload")) {
		t.Errorf("Unexpected payload: %q", entry.Payload)
	}
	if entry.ContentType != "application/x-protobuf" {
		t.Errorf("Unexpected content type: %q", entry.ContentType)
	}
}

func TestByteCache_Miss(t *testing.T) {
	c := New(10, 0)
	defer c.Close()

	if _, ok := c.Get("nope"); ok {
		t.Error("Expected miss for unknown key")
	}
}

func TestByteCache_Expiry(t *testing.T) {
	c := New(10, 0)
	defer c.Close()

	c.Set("k", []byte("v"), "image/png", 20*time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("Expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)

	// An expired entry must behave exactly like a miss.
	if _, ok := c.Get("k"); ok {
		t.Fatal("Expired entry was served")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be deleted, len=%d", c.Len())
	}
}

func TestByteCache_LRUEviction(t *testing.T) {
	c := New(3, 0)
	defer c.Close()

	c.Set("a", []byte("a"), "", time.Minute)
	c.Set("b", []byte("b"), "", time.Minute)
	c.Set("c", []byte("c"), "", time.Minute)

	// Touch "a" so "b" becomes the least recently accessed.
	time.Sleep(5 * time.Millisecond)
	c.Get("a")

	c.Set("d", []byte("d"), "", time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Error("Expected LRU entry b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("Expected %q to survive eviction", key)
		}
	}
}

func TestByteCache_SweepExpired(t *testing.T) {
	c := New(10, 0)
	defer c.Close()

	c.Set("stale", []byte("x"), "", 10*time.Millisecond)
	c.Set("fresh", []byte("y"), "", time.Minute)

	time.Sleep(25 * time.Millisecond)

	if removed := c.SweepExpired(); removed != 1 {
		t.Errorf("Expected 1 swept entry, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", c.Len())
	}
}

func TestByteCache_Concurrent(t *testing.T) {
	c := New(100, 0)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k-%d", n%10)
			c.Set(key, []byte(key), "", time.Minute)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Errorf("Expected 10 distinct keys, got %d", c.Len())
	}
}
