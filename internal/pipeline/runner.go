// Package pipeline wires the subscription stream through decode, filter,
// rate limit and dispatch.
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"pumpfun-alerts/internal/decode"
	"pumpfun-alerts/internal/dispatch"
	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/filter"
	"pumpfun-alerts/internal/observability"
	"pumpfun-alerts/internal/ratelimit"
	"pumpfun-alerts/internal/solana"
	"pumpfun-alerts/internal/stats"
	"pumpfun-alerts/internal/storage"
)

// NotificationSource is the inbound frame stream, normally a *solana.Session.
type NotificationSource interface {
	Notifications() <-chan solana.LogNotification
	Close() error
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source     NotificationSource
	Decoder    *decode.Decoder
	Filter     filter.Config
	Limiter    *ratelimit.Limiter
	Dispatcher *dispatch.Dispatcher
	Recorder   *stats.Recorder
	Metrics    *observability.Metrics // optional
	// Archive, when set, receives every decoded event with its outcome.
	Archive storage.EventArchive

	// StatusInterval is the cadence of the periodic snapshot log.
	// Default: 1 minute.
	StatusInterval time.Duration
	// ArchiveFlushInterval bounds how long archive rows buffer. Default: 5s.
	ArchiveFlushInterval time.Duration

	Logger *log.Logger
}

// Runner consumes log notifications and drives them through the alert
// pipeline stages in order. It owns the archive write buffer; everything
// else is injected.
type Runner struct {
	source     NotificationSource
	decoder    *decode.Decoder
	filterCfg  filter.Config
	limiter    *ratelimit.Limiter
	dispatcher *dispatch.Dispatcher
	recorder   *stats.Recorder
	metrics    *observability.Metrics
	archive    storage.EventArchive

	statusInterval time.Duration
	flushInterval  time.Duration
	logger         *log.Logger

	pending []*domain.ArchivedEvent
}

// archiveBatchSize triggers an early flush of buffered archive rows.
const archiveBatchSize = 64

// NewRunner creates a pipeline runner.
func NewRunner(opts RunnerOptions) *Runner {
	statusInterval := opts.StatusInterval
	if statusInterval == 0 {
		statusInterval = 1 * time.Minute
	}
	flushInterval := opts.ArchiveFlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = stats.NewRecorder()
	}
	decoder := opts.Decoder
	if decoder == nil {
		decoder = decode.NewDecoder(logger)
	}

	return &Runner{
		source:         opts.Source,
		decoder:        decoder,
		filterCfg:      opts.Filter,
		limiter:        opts.Limiter,
		dispatcher:     opts.Dispatcher,
		recorder:       recorder,
		metrics:        opts.Metrics,
		archive:        opts.Archive,
		statusInterval: statusInterval,
		flushInterval:  flushInterval,
		logger:         logger,
	}
}

// Run processes notifications until the context is cancelled or the stream
// closes. On shutdown it flushes the archive buffer and waits for in-flight
// deliveries.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Println("[pipeline] runner started")

	statusTicker := time.NewTicker(r.statusInterval)
	defer statusTicker.Stop()

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()

		case n, ok := <-r.source.Notifications():
			if !ok {
				r.logger.Println("[pipeline] notification stream closed")
				r.shutdown()
				return errors.New("notification stream closed")
			}
			r.handle(ctx, n)

		case <-flushTicker.C:
			r.flushArchive(ctx)

		case <-statusTicker.C:
			r.logSnapshot()
		}
	}
}

// handle drives one notification through the pipeline stages.
func (r *Runner) handle(ctx context.Context, n solana.LogNotification) {
	r.recorder.FrameSeen()
	if r.metrics != nil {
		r.metrics.FramesSeen.Inc()
	}

	// Failed transactions never create tokens.
	if n.Err != nil {
		return
	}

	event, err := r.decoder.Decode(n, time.Now())
	if err != nil {
		r.recorder.DecodeError()
		if r.metrics != nil {
			r.metrics.DecodeErrors.Inc()
		}
		r.logger.Printf("[pipeline] decode error: %v", err)
		return
	}
	if event == nil {
		return
	}

	r.recorder.EventDecoded()
	if r.metrics != nil {
		r.metrics.EventsDecoded.Inc()
	}
	r.logger.Printf("[pipeline] creation event: name=%q symbol=%q mint=%s sig=%s",
		event.Name, event.Symbol, event.Mint, event.Signature)

	result := filter.Evaluate(event, &r.filterCfg)
	if !result.Pass {
		r.recorder.FilterRejected(string(result.Reason))
		if r.metrics != nil {
			r.metrics.FilterRejects.WithLabelValues(string(result.Reason)).Inc()
		}
		r.logger.Printf("[pipeline] filtered sig=%s reason=%s (%s)", event.Signature, result.Reason, result.Detail)
		r.bufferArchive(ctx, event, domain.ArchiveOutcomeFilteredPrefix+string(result.Reason))
		return
	}

	if r.limiter != nil && !r.limiter.Admit() {
		r.recorder.RateLimited()
		if r.metrics != nil {
			r.metrics.RateLimited.Inc()
		}
		r.logger.Printf("[pipeline] rate limited sig=%s", event.Signature)
		r.bufferArchive(ctx, event, domain.ArchiveOutcomeRateLimited)
		return
	}

	if r.dispatcher.Dispatch(ctx, event, result.TriggeredBy) {
		r.bufferArchive(ctx, event, domain.ArchiveOutcomeDispatched)
	} else {
		// Dedup stats are recorded by the dispatcher.
		r.bufferArchive(ctx, event, domain.ArchiveOutcomeDeduplicated)
	}
}

// bufferArchive queues one archive row; flushes when the batch fills.
func (r *Runner) bufferArchive(ctx context.Context, event *domain.CreationEvent, outcome string) {
	if r.archive == nil {
		return
	}

	r.pending = append(r.pending, &domain.ArchivedEvent{
		Signature:  event.Signature,
		Mint:       event.Mint,
		Name:       event.Name,
		Symbol:     event.Symbol,
		URI:        event.URI,
		Creator:    event.Creator,
		Slot:       event.Slot,
		ObservedAt: event.ObservedAt.UnixMilli(),
		Outcome:    outcome,
	})
	if len(r.pending) >= archiveBatchSize {
		r.flushArchive(ctx)
	}
}

// flushArchive writes buffered rows. Failures drop the batch with a log
// line; the archive is observability data, not pipeline state.
func (r *Runner) flushArchive(ctx context.Context) {
	if r.archive == nil || len(r.pending) == 0 {
		return
	}

	batch := r.pending
	r.pending = nil

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := r.archive.InsertBulk(flushCtx, batch); err != nil {
		r.logger.Printf("[pipeline] archive flush failed, dropped %d rows: %v", len(batch), err)
	}
}

func (r *Runner) shutdown() {
	r.logger.Println("[pipeline] runner stopping...")
	r.source.Close()
	r.dispatcher.Wait()
	r.flushArchive(context.Background())
	r.logSnapshot()
}

// logSnapshot prints the counter snapshot in one line.
func (r *Runner) logSnapshot() {
	s := r.recorder.Snapshot()
	r.logger.Printf("[pipeline] stats: frames=%d decoded=%d decode_errors=%d rejects=%v rate_limited=%d deduped=%d dispatched=%v failures=%v reconnects=%d runtime=%ds efficiency=%.1f%%",
		s.FramesSeen, s.EventsDecoded, s.DecodeErrors, s.FilterRejects,
		s.RateLimited, s.Deduplicated, s.Dispatched, s.DeliveryFailures,
		s.Reconnects, s.RuntimeSeconds, s.FilterEfficiency)
}
