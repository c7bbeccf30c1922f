package domain

import "time"

// Outcome classifies one delivery attempt.
type Outcome string

const (
	// OutcomeSuccess is a 2xx response.
	OutcomeSuccess Outcome = "success"
	// OutcomeTransient is a network error, timeout, 5xx or 429; eligible for retry.
	OutcomeTransient Outcome = "transient_failure"
	// OutcomePermanent is a non-429 4xx; never retried.
	OutcomePermanent Outcome = "permanent_failure"
)

// DispatchAttempt records one delivery try for statistics and logs.
// Attempts are consumed by the recorder and discarded, never persisted.
type DispatchAttempt struct {
	Channel        string
	EventSignature string
	AttemptNumber  int
	Outcome        Outcome
	Latency        time.Duration
}

// AlertRecord is one successfully dispatched alert, as kept in the
// alert history store.
type AlertRecord struct {
	// AlertID is the deterministic identity of this alert (see idhash).
	AlertID     string
	Signature   string
	Mint        string
	Name        string
	Symbol      string
	Creator     string
	Channel     string
	TriggeredBy string
	SentAt      int64 // unix ms
	CreatedAt   int64 // unix ms, set by storage
}
