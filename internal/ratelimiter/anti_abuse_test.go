package ratelimiter

import (
	"testing"
	"time"
)

func newTestLimiter() *AntiAbuseLimiter {
	return NewAntiAbuseLimiter(AntiAbuseConfig{
		IPMaxRequests:    3,
		IPWindow:         time.Minute,
		EmailMaxRequests: 2,
		EmailWindow:      time.Minute,
		EmailMinInterval: 10 * time.Second,
	})
}

func TestAntiAbuseLimiterAllowsUnderLimit(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1700000000, 0)

	if d := l.Check("1.2.3.4", "a@example.com", now); !d.Allowed {
		t.Fatalf("first request should be allowed, got reason %q", d.Reason)
	}
}

func TestAntiAbuseLimiterBlocksAfterIPLimit(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1700000000, 0)

	for i := 0; i < 3; i++ {
		email := "buyer" + string(rune('a'+i)) + "@example.com"
		now = now.Add(15 * time.Second)
		if d := l.Check("1.2.3.4", email, now); !d.Allowed {
			t.Fatalf("request %d from same ip should be allowed, got reason %q", i, d.Reason)
		}
	}

	now = now.Add(15 * time.Second)
	if d := l.Check("1.2.3.4", "buyerx@example.com", now); d.Allowed {
		t.Error("4th request from same ip within window should be blocked")
	}
}

func TestAntiAbuseLimiterBlocksAfterEmailLimit(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1700000000, 0)

	now = now.Add(15 * time.Second)
	if d := l.Check("1.1.1.1", "a@example.com", now); !d.Allowed {
		t.Fatalf("first request should be allowed, got reason %q", d.Reason)
	}
	now = now.Add(15 * time.Second)
	if d := l.Check("2.2.2.2", "a@example.com", now); !d.Allowed {
		t.Fatalf("second request for same email should be allowed, got reason %q", d.Reason)
	}
	now = now.Add(15 * time.Second)
	if d := l.Check("3.3.3.3", "a@example.com", now); d.Allowed {
		t.Error("3rd request for the same email within window should be blocked")
	}
}

func TestAntiAbuseLimiterEnforcesMinimumInterval(t *testing.T) {
	l := newTestLimiter()
	now := time.Unix(1700000000, 0)

	if d := l.Check("9.9.9.9", "fast@example.com", now); !d.Allowed {
		t.Fatalf("first request should be allowed, got reason %q", d.Reason)
	}
	now = now.Add(2 * time.Second)
	if d := l.Check("8.8.8.8", "fast@example.com", now); d.Allowed {
		t.Error("request within the minimum interval for the same email should be blocked")
	}
}
