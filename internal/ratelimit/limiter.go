// Package ratelimit bounds outbound alert volume independent of inbound volume.
package ratelimit

import (
	"sync"
	"time"
)

// Config holds the sliding-window policy parameters. Zero values disable the
// corresponding check.
type Config struct {
	// WindowDuration is the trailing window length.
	WindowDuration time.Duration
	// MaxPerWindow caps admissions inside the trailing window.
	MaxPerWindow int
	// MinSpacing is the minimum gap between consecutive admissions.
	MinSpacing time.Duration
}

// DefaultConfig mirrors the historical one-alert-per-second knob.
func DefaultConfig() Config {
	return Config{
		WindowDuration: time.Minute,
		MaxPerWindow:   60,
		MinSpacing:     time.Second,
	}
}

// Limiter is a sliding-window admission gate. Events denied admission are
// dropped by the caller, never queued; state is a function of arrival order.
type Limiter struct {
	cfg Config

	mu         sync.Mutex
	admissions []time.Time // admission times inside the trailing window
	lastAdmit  time.Time

	now func() time.Time
}

// NewLimiter creates a Limiter.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, now: time.Now}
}

// Admit reports whether an event may be dispatched now, and if so records the
// admission. Both the window cap and the spacing gate must allow it.
func (l *Limiter) Admit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if l.cfg.MaxPerWindow > 0 && len(l.admissions) >= l.cfg.MaxPerWindow {
		return false
	}
	if l.cfg.MinSpacing > 0 && !l.lastAdmit.IsZero() && now.Sub(l.lastAdmit) < l.cfg.MinSpacing {
		return false
	}

	l.admissions = append(l.admissions, now)
	l.lastAdmit = now
	return true
}

// prune drops admissions that left the trailing window.
func (l *Limiter) prune(now time.Time) {
	if l.cfg.WindowDuration <= 0 {
		l.admissions = l.admissions[:0]
		return
	}
	cutoff := now.Add(-l.cfg.WindowDuration)
	i := 0
	for i < len(l.admissions) && !l.admissions[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.admissions = append(l.admissions[:0], l.admissions[i:]...)
	}
}
