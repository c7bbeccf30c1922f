// Package stats maintains monotonic pipeline counters.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"pumpfun-alerts/internal/domain"
)

// Recorder counts pipeline outcomes. All methods are safe for concurrent use
// and never block; recording has no behavioral effect on the pipeline.
type Recorder struct {
	startedAt time.Time

	framesSeen    atomic.Uint64
	eventsDecoded atomic.Uint64
	decodeErrors  atomic.Uint64
	rateLimited   atomic.Uint64
	deduped       atomic.Uint64
	connects      atomic.Uint64
	reconnects    atomic.Uint64

	filterRejects    counterMap // keyed by reject reason
	dispatched       counterMap // keyed by channel
	deliveryFailures counterMap // keyed by channel
	attempts         counterMap // keyed by channel
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{startedAt: time.Now()}
}

func (r *Recorder) FrameSeen()     { r.framesSeen.Add(1) }
func (r *Recorder) EventDecoded()  { r.eventsDecoded.Add(1) }
func (r *Recorder) DecodeError()   { r.decodeErrors.Add(1) }
func (r *Recorder) RateLimited()   { r.rateLimited.Add(1) }
func (r *Recorder) Deduplicated()  { r.deduped.Add(1) }

// FilterRejected counts one rejection under its reason.
func (r *Recorder) FilterRejected(reason string) { r.filterRejects.inc(reason) }

// SessionState counts connects and reconnects from session transitions.
func (r *Recorder) SessionState(reconnect bool) {
	if reconnect {
		r.reconnects.Add(1)
	} else {
		r.connects.Add(1)
	}
}

// Attempt counts one delivery attempt for the channel.
func (r *Recorder) Attempt(a domain.DispatchAttempt) {
	r.attempts.inc(a.Channel)
}

// Dispatched counts one successful delivery for a channel.
func (r *Recorder) Dispatched(channel string) { r.dispatched.inc(channel) }

// DeliveryFailed counts one exhausted or permanent delivery failure.
func (r *Recorder) DeliveryFailed(channel string) { r.deliveryFailures.inc(channel) }

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	FramesSeen    uint64            `json:"frames_seen"`
	EventsDecoded uint64            `json:"events_decoded"`
	DecodeErrors  uint64            `json:"decode_errors"`
	FilterRejects map[string]uint64 `json:"filter_rejects"`
	RateLimited   uint64            `json:"rate_limited"`
	Deduplicated  uint64            `json:"deduplicated"`

	Dispatched       map[string]uint64 `json:"dispatched"`
	DeliveryFailures map[string]uint64 `json:"delivery_failures"`
	Attempts         map[string]uint64 `json:"attempts"`

	Connects   uint64 `json:"connects"`
	Reconnects uint64 `json:"reconnects"`

	RuntimeSeconds   int64   `json:"runtime_seconds"`
	FilterEfficiency float64 `json:"filter_efficiency_pct"`
}

// Snapshot returns the current counter values without pausing the pipeline.
func (r *Recorder) Snapshot() Snapshot {
	rejects := r.filterRejects.snapshot()

	var rejected uint64
	for _, v := range rejects {
		rejected += v
	}

	decoded := r.eventsDecoded.Load()
	efficiency := 0.0
	if decoded > 0 {
		efficiency = float64(rejected) / float64(decoded) * 100
	}

	return Snapshot{
		FramesSeen:       r.framesSeen.Load(),
		EventsDecoded:    decoded,
		DecodeErrors:     r.decodeErrors.Load(),
		FilterRejects:    rejects,
		RateLimited:      r.rateLimited.Load(),
		Deduplicated:     r.deduped.Load(),
		Dispatched:       r.dispatched.snapshot(),
		DeliveryFailures: r.deliveryFailures.snapshot(),
		Attempts:         r.attempts.snapshot(),
		Connects:         r.connects.Load(),
		Reconnects:       r.reconnects.Load(),
		RuntimeSeconds:   int64(time.Since(r.startedAt).Seconds()),
		FilterEfficiency: efficiency,
	}
}

// counterMap is a lock-free map of named counters.
type counterMap struct {
	m sync.Map // string -> *atomic.Uint64
}

func (c *counterMap) inc(key string) {
	v, ok := c.m.Load(key)
	if !ok {
		v, _ = c.m.LoadOrStore(key, new(atomic.Uint64))
	}
	v.(*atomic.Uint64).Add(1)
}

func (c *counterMap) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	c.m.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return out
}
