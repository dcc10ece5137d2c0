// Package ratelimiter guards guest checkout against abuse. AntiAbuseLimiter
// generalizes FixedWindowRateLimiter's single mutex+map idiom from one fixed
// window per IP to two sliding windows (IP, email) plus a minimum-interval
// gate per email.
package ratelimiter

import (
	"sync"
	"time"
)

type AntiAbuseConfig struct {
	IPMaxRequests        int
	IPWindow             time.Duration
	EmailMaxRequests     int
	EmailWindow          time.Duration
	EmailMinInterval     time.Duration
}

type AntiAbuseLimiter struct {
	mu           sync.Mutex
	cfg          AntiAbuseConfig
	ipHits       map[string][]time.Time
	emailHits    map[string][]time.Time
	lastEmailHit map[string]time.Time
}

func NewAntiAbuseLimiter(cfg AntiAbuseConfig) *AntiAbuseLimiter {
	return &AntiAbuseLimiter{
		cfg:          cfg,
		ipHits:       make(map[string][]time.Time),
		emailHits:    make(map[string][]time.Time),
		lastEmailHit: make(map[string]time.Time),
	}
}

type Decision struct {
	Allowed bool
	Reason  string
}

// Check evaluates the guest-checkout attempt against all three gates and,
// on acceptance, prunes expired entries and records this hit. now is
// threaded through for deterministic tests.
func (l *AntiAbuseLimiter) Check(ip, email string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	ipWindowStart := now.Add(-l.cfg.IPWindow)
	l.ipHits[ip] = pruneBefore(l.ipHits[ip], ipWindowStart)
	if len(l.ipHits[ip]) >= l.cfg.IPMaxRequests {
		return Decision{Allowed: false, Reason: "too many requests from this ip"}
	}

	emailWindowStart := now.Add(-l.cfg.EmailWindow)
	l.emailHits[email] = pruneBefore(l.emailHits[email], emailWindowStart)
	if len(l.emailHits[email]) >= l.cfg.EmailMaxRequests {
		return Decision{Allowed: false, Reason: "too many requests for this email"}
	}

	if last, ok := l.lastEmailHit[email]; ok && now.Sub(last) < l.cfg.EmailMinInterval {
		return Decision{Allowed: false, Reason: "too soon since the last attempt for this email"}
	}

	l.ipHits[ip] = append(l.ipHits[ip], now)
	l.emailHits[email] = append(l.emailHits[email], now)
	l.lastEmailHit[email] = now
	return Decision{Allowed: true}
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	out := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}
