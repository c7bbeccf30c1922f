// Package filter decides whether a creation event warrants an alert.
package filter

import (
	"fmt"
	"strings"

	"pumpfun-alerts/internal/domain"
)

// Config holds the operator-supplied criteria. It is loaded once and treated
// as immutable for the process lifetime; matching is case-insensitive.
type Config struct {
	NameContains     []string
	SymbolContains   []string
	BlockedWords     []string
	CreatorAllowlist []string
	MinNameLength    int
	MaxNameLength    int
}

// Normalize lowercases the word lists so Evaluate can compare directly.
// Call once after loading configuration.
func (c *Config) Normalize() {
	lower := func(words []string) []string {
		out := make([]string, len(words))
		for i, w := range words {
			out[i] = strings.ToLower(w)
		}
		return out
	}
	c.NameContains = lower(c.NameContains)
	c.SymbolContains = lower(c.SymbolContains)
	c.BlockedWords = lower(c.BlockedWords)
}

// RejectReason identifies which check rejected an event.
type RejectReason string

const (
	ReasonBlockedWord       RejectReason = "blocked_word"
	ReasonLengthOutOfRange  RejectReason = "length_out_of_range"
	ReasonCreatorNotAllowed RejectReason = "creator_not_allowed"
	ReasonNoKeywordMatch    RejectReason = "no_keyword_match"
)

// Reasons lists all reject reasons, for statistics registration.
var Reasons = []RejectReason{
	ReasonBlockedWord,
	ReasonLengthOutOfRange,
	ReasonCreatorNotAllowed,
	ReasonNoKeywordMatch,
}

// Result is the tagged outcome of one evaluation.
type Result struct {
	Pass bool
	// Reason is set when Pass is false.
	Reason RejectReason
	// Detail carries the rejecting word or bound for logs.
	Detail string
	// TriggeredBy describes the matching keywords when Pass is true.
	TriggeredBy string
}

// Evaluate applies the configured checks in fixed order with short-circuit:
// blocked words, name length bounds, creator allowlist, keyword match.
// It is pure and total; an empty config always passes.
func Evaluate(event *domain.CreationEvent, cfg *Config) Result {
	name := strings.ToLower(event.Name)
	symbol := strings.ToLower(event.Symbol)

	for _, word := range cfg.BlockedWords {
		if strings.Contains(name, word) || strings.Contains(symbol, word) {
			return Result{Reason: ReasonBlockedWord, Detail: word}
		}
	}

	if cfg.MinNameLength > 0 && len(event.Name) < cfg.MinNameLength {
		return Result{
			Reason: ReasonLengthOutOfRange,
			Detail: fmt.Sprintf("name length %d < %d", len(event.Name), cfg.MinNameLength),
		}
	}
	if cfg.MaxNameLength > 0 && len(event.Name) > cfg.MaxNameLength {
		return Result{
			Reason: ReasonLengthOutOfRange,
			Detail: fmt.Sprintf("name length %d > %d", len(event.Name), cfg.MaxNameLength),
		}
	}

	if len(cfg.CreatorAllowlist) > 0 && !containsString(cfg.CreatorAllowlist, event.Creator) {
		return Result{Reason: ReasonCreatorNotAllowed, Detail: event.Creator}
	}

	// Keyword match: when either list is configured, at least one configured
	// keyword must appear in the name or the symbol.
	if len(cfg.NameContains) > 0 || len(cfg.SymbolContains) > 0 {
		var triggers []string
		if matched := matchingWords(cfg.NameContains, name); len(matched) > 0 {
			triggers = append(triggers, "name contains: "+strings.Join(matched, ","))
		}
		if matched := matchingWords(cfg.SymbolContains, symbol); len(matched) > 0 {
			triggers = append(triggers, "symbol contains: "+strings.Join(matched, ","))
		}
		if len(triggers) == 0 {
			return Result{Reason: ReasonNoKeywordMatch, Detail: "no configured keyword matched"}
		}
		return Result{Pass: true, TriggeredBy: strings.Join(triggers, " | ")}
	}

	return Result{Pass: true, TriggeredBy: "new token detected"}
}

func matchingWords(words []string, haystack string) []string {
	var matched []string
	for _, w := range words {
		if strings.Contains(haystack, w) {
			matched = append(matched, w)
		}
	}
	return matched
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
