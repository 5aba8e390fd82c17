package ratelimit

import (
	"testing"
	"time"
)

func TestBurstThenDeny(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 3, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d within burst denied", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request above burst should be denied")
	}
}

func TestClientsIsolated(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("a") {
		t.Error("first request for client a denied")
	}
	if !l.Allow("b") {
		t.Error("client b should have its own bucket")
	}
	if l.Allow("a") {
		t.Error("client a should be out of tokens")
	}
}

func TestRefill(t *testing.T) {
	// 6000 per minute = 100 tokens/sec, so a drained bucket refills quickly
	l := New(Config{RequestsPerMinute: 6000, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("x") {
		t.Fatal("first request denied")
	}
	if l.Allow("x") {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(50 * time.Millisecond)
	if !l.Allow("x") {
		t.Error("bucket should have refilled after waiting")
	}
}
