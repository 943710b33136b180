package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(time.Minute)
	for i := 0; i < 5; i++ {
		if !l.Allow("key", 5) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestAllowRejectsBeyondLimit(t *testing.T) {
	l := New(time.Hour)
	for i := 0; i < 3; i++ {
		l.Allow("key", 3)
	}
	if l.Allow("key", 3) {
		t.Error("fourth request should be rejected")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(time.Hour)
	for i := 0; i < 2; i++ {
		l.Allow("first", 2)
	}
	if l.Allow("first", 2) {
		t.Error("first key should be exhausted")
	}
	if !l.Allow("second", 2) {
		t.Error("second key should be unaffected")
	}
}

func TestTokensRefillOverTime(t *testing.T) {
	l := New(100 * time.Millisecond)
	for i := 0; i < 2; i++ {
		l.Allow("key", 2)
	}
	if l.Allow("key", 2) {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(120 * time.Millisecond)
	if !l.Allow("key", 2) {
		t.Error("tokens should have refilled after the window")
	}
}

func TestResetClearsState(t *testing.T) {
	l := New(time.Hour)
	for i := 0; i < 2; i++ {
		l.Allow("key", 2)
	}
	l.Reset("key")
	if !l.Allow("key", 2) {
		t.Error("reset key should be allowed again")
	}
}
