package api

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestVisitorLimiterPerAddress(t *testing.T) {
	l := newVisitorLimiter(rate.Every(time.Minute), 1, time.Hour)

	if _, ok := l.reserve("10.0.0.1"); !ok {
		t.Fatalf("expected first request allowed")
	}
	wait, ok := l.reserve("10.0.0.1")
	if ok {
		t.Fatalf("expected second request rejected")
	}
	if wait <= 0 || wait > time.Minute {
		t.Fatalf("expected wait within a minute, got %v", wait)
	}
	if _, ok := l.reserve("10.0.0.2"); !ok {
		t.Fatalf("expected other address unaffected")
	}
}

func TestVisitorLimiterSweepsIdle(t *testing.T) {
	now := time.Now()
	l := newVisitorLimiter(rate.Every(time.Minute), 1, time.Minute)
	l.now = func() time.Time { return now }

	l.reserve("10.0.0.1")
	l.reserve("10.0.0.2")
	if n := l.size(); n != 2 {
		t.Fatalf("expected 2 visitors, got %d", n)
	}

	now = now.Add(2 * time.Minute)
	l.reserve("10.0.0.3")
	if n := l.size(); n != 1 {
		t.Fatalf("expected idle visitors swept, got %d", n)
	}
}
