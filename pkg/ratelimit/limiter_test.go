package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestClientLimiter_Basic(t *testing.T) {
	l := NewClientLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if d := l.Allow("client-a"); !d.Allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	// The (N+1)th request within the window is denied.
	d := l.Allow("client-a")
	if d.Allowed {
		t.Fatal("Expected 4th request to be denied")
	}
	if d.RetryAfter != time.Minute {
		t.Errorf("Expected retry-after equal to window, got %v", d.RetryAfter)
	}
}

func TestClientLimiter_PerClientIsolation(t *testing.T) {
	l := NewClientLimiter(1, time.Minute)

	if d := l.Allow("client-a"); !d.Allowed {
		t.Fatal("First request for client-a should be allowed")
	}
	if d := l.Allow("client-a"); d.Allowed {
		t.Fatal("Second request for client-a should be denied")
	}

	// Another client's window is independent.
	if d := l.Allow("client-b"); !d.Allowed {
		t.Fatal("client-b should not be affected by client-a's quota")
	}
}

func TestClientLimiter_WindowElapses(t *testing.T) {
	l := NewClientLimiter(1, 30*time.Millisecond)

	if d := l.Allow("client"); !d.Allowed {
		t.Fatal("First request should be allowed")
	}
	if d := l.Allow("client"); d.Allowed {
		t.Fatal("Second request inside the window should be denied")
	}

	time.Sleep(50 * time.Millisecond)

	if d := l.Allow("client"); !d.Allowed {
		t.Fatal("Request after the window elapsed should be allowed")
	}
}

func TestClientLimiter_Remaining(t *testing.T) {
	l := NewClientLimiter(5, time.Minute)

	d := l.Allow("c")
	if d.Remaining != 4 {
		t.Errorf("Expected 4 remaining, got %d", d.Remaining)
	}
	d = l.Allow("c")
	if d.Remaining != 3 {
		t.Errorf("Expected 3 remaining, got %d", d.Remaining)
	}
}

func TestClientLimiter_Sweep(t *testing.T) {
	l := NewClientLimiter(10, 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		l.Allow(fmt.Sprintf("one-off-%d", i))
	}
	if l.Clients() != 5 {
		t.Fatalf("Expected 5 tracked clients, got %d", l.Clients())
	}

	time.Sleep(40 * time.Millisecond)

	if removed := l.Sweep(); removed != 5 {
		t.Errorf("Expected 5 swept clients, got %d", removed)
	}
	if l.Clients() != 0 {
		t.Errorf("Expected no tracked clients after sweep, got %d", l.Clients())
	}
}

func TestClientLimiter_Concurrent(t *testing.T) {
	l := NewClientLimiter(100, time.Minute)

	var wg sync.WaitGroup
	allowed := 0
	var mu sync.Mutex

	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("Expected exactly 100 allowed requests, got %d", allowed)
	}
}
