package dispatch

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/idhash"
	"pumpfun-alerts/internal/observability"
	"pumpfun-alerts/internal/stats"
	"pumpfun-alerts/internal/storage"
)

// RetryConfig controls per-channel delivery retries.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// Factor multiplies the delay after each failed attempt.
	Factor float64
	// JitterFrac randomizes each delay by +/- this fraction.
	JitterFrac float64
	// AttemptTimeout bounds each delivery call. In-flight calls run to
	// completion or this timeout even when the dispatch context is
	// cancelled; cancellation only skips further retries.
	AttemptTimeout time.Duration
}

// DefaultRetryConfig returns the delivery retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      1 * time.Second,
		MaxDelay:       30 * time.Second,
		Factor:         2.0,
		JitterFrac:     0.2,
		AttemptTimeout: 10 * time.Second,
	}
}

// Options configures a Dispatcher.
type Options struct {
	Channels []Channel
	Retry    RetryConfig

	// DedupWindow suppresses repeat signatures. Default 5 minutes.
	DedupWindow time.Duration
	// MintCooldown suppresses repeat alerts for the same mint. Default 1 hour.
	MintCooldown time.Duration

	Recorder *stats.Recorder
	Metrics  *observability.Metrics // optional
	Logger   *log.Logger
	// Alerts, when set, records every successful delivery. Best-effort.
	Alerts storage.AlertStore
}

// Dispatcher fans admitted events out to all configured channels. Each
// channel delivers in its own goroutine so a slow endpoint never blocks
// the others or the ingest loop.
type Dispatcher struct {
	channels []Channel
	retry    RetryConfig

	seenSigs  *recencySet
	seenMints *recencySet

	recorder *stats.Recorder
	metrics  *observability.Metrics
	logger   *log.Logger
	alerts   storage.AlertStore

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from options, applying defaults.
func NewDispatcher(opts Options) *Dispatcher {
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	if retry.Factor < 1 {
		retry.Factor = 2.0
	}
	if retry.AttemptTimeout <= 0 {
		retry.AttemptTimeout = 10 * time.Second
	}

	dedupWindow := opts.DedupWindow
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	mintCooldown := opts.MintCooldown
	if mintCooldown <= 0 {
		mintCooldown = 1 * time.Hour
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = stats.NewRecorder()
	}

	return &Dispatcher{
		channels:  opts.Channels,
		retry:     retry,
		seenSigs:  newRecencySet(dedupWindow, 4096),
		seenMints: newRecencySet(mintCooldown, 4096),
		recorder:  recorder,
		metrics:   opts.Metrics,
		logger:    logger,
		alerts:    opts.Alerts,
	}
}

// Dispatch fans one admitted event out to every channel. Returns false when
// the event is suppressed by the signature dedup window or mint cooldown.
func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.CreationEvent, triggeredBy string) bool {
	if d.seenSigs.Seen(event.Signature) || d.seenMints.Seen(event.Mint) {
		d.recorder.Deduplicated()
		if d.metrics != nil {
			d.metrics.Deduplicated.Inc()
		}
		d.logger.Printf("[dispatch] suppressed duplicate sig=%s mint=%s", event.Signature, event.Mint)
		return false
	}

	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			d.deliverWithRetry(ctx, ch, event, triggeredBy)
		}(ch)
	}
	return true
}

// Wait blocks until all in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, ch Channel, event *domain.CreationEvent, triggeredBy string) {
	name := ch.Name()

	payload, err := ch.Render(event, triggeredBy)
	if err != nil {
		d.logger.Printf("[dispatch] %s: render failed sig=%s: %v", name, event.Signature, err)
		d.failed(name)
		return
	}

	delay := d.retry.BaseDelay
	for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
		// Each attempt runs on a detached context so a shutdown cancel
		// lets the in-flight request finish or hit the attempt timeout.
		attemptCtx, cancelAttempt := context.WithTimeout(context.WithoutCancel(ctx), d.retry.AttemptTimeout)
		start := time.Now()
		outcome, err := ch.Deliver(attemptCtx, payload)
		latency := time.Since(start)
		cancelAttempt()

		d.recorder.Attempt(domain.DispatchAttempt{
			Channel:        name,
			EventSignature: event.Signature,
			AttemptNumber:  attempt,
			Outcome:        outcome,
			Latency:        latency,
		})
		if d.metrics != nil {
			d.metrics.DeliveryAttempts.WithLabelValues(name).Inc()
			d.metrics.DeliveryLatency.WithLabelValues(name).Observe(latency.Seconds())
		}

		switch outcome {
		case domain.OutcomeSuccess:
			d.recorder.Dispatched(name)
			if d.metrics != nil {
				d.metrics.AlertsDispatched.WithLabelValues(name).Inc()
			}
			d.logger.Printf("[dispatch] %s: delivered sig=%s mint=%s attempt=%d", name, event.Signature, event.Mint, attempt)
			d.recordAlert(ctx, ch, event, triggeredBy)
			return

		case domain.OutcomePermanent:
			d.logger.Printf("[dispatch] %s: permanent failure sig=%s: %v", name, event.Signature, err)
			d.failed(name)
			return

		default: // transient
			if attempt == d.retry.MaxAttempts {
				d.logger.Printf("[dispatch] %s: giving up sig=%s after %d attempts: %v", name, event.Signature, attempt, err)
				d.failed(name)
				return
			}
			d.logger.Printf("[dispatch] %s: attempt %d failed sig=%s, retrying in %s: %v", name, attempt, event.Signature, delay, err)

			select {
			case <-ctx.Done():
				d.logger.Printf("[dispatch] %s: canceled sig=%s", name, event.Signature)
				d.failed(name)
				return
			case <-time.After(jitteredDelay(delay, d.retry.JitterFrac)):
			}

			delay = time.Duration(float64(delay) * d.retry.Factor)
			if d.retry.MaxDelay > 0 && delay > d.retry.MaxDelay {
				delay = d.retry.MaxDelay
			}
		}
	}
}

func (d *Dispatcher) failed(channel string) {
	d.recorder.DeliveryFailed(channel)
	if d.metrics != nil {
		d.metrics.DeliveryFailures.WithLabelValues(channel).Inc()
	}
}

// recordAlert persists a successful delivery. Failures are logged, never
// propagated; history is an audit trail, not part of the delivery contract.
func (d *Dispatcher) recordAlert(ctx context.Context, ch Channel, event *domain.CreationEvent, triggeredBy string) {
	if d.alerts == nil {
		return
	}

	record := &domain.AlertRecord{
		AlertID:     idhash.ComputeAlertID(event.Signature, ch.Name(), event.Mint),
		Signature:   event.Signature,
		Mint:        event.Mint,
		Name:        event.Name,
		Symbol:      event.Symbol,
		Creator:     event.Creator,
		Channel:     ch.Name(),
		TriggeredBy: triggeredBy,
		SentAt:      time.Now().UnixMilli(),
	}

	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := d.alerts.Insert(insertCtx, record); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		d.logger.Printf("[dispatch] %s: record alert failed sig=%s: %v", ch.Name(), event.Signature, err)
	}
}

// jitteredDelay spreads retries by +/- frac of the base delay.
func jitteredDelay(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	spread := float64(d) * frac
	return time.Duration(float64(d) + (rand.Float64()*2-1)*spread)
}
