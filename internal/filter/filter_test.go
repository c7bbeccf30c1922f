package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pumpfun-alerts/internal/domain"
)

func event(name, symbol, creator string) *domain.CreationEvent {
	return &domain.CreationEvent{
		Signature: "sig",
		Name:      name,
		Symbol:    symbol,
		Creator:   creator,
	}
}

func TestEvaluate_EmptyConfigPasses(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	res := Evaluate(event("Anything", "ANY", "creator1"), cfg)
	assert.True(t, res.Pass)
	assert.Equal(t, "new token detected", res.TriggeredBy)
}

func TestEvaluate_BlockedWord(t *testing.T) {
	cfg := &Config{BlockedWords: []string{"SCAM"}}
	cfg.Normalize()

	res := Evaluate(event("Totally a Scam Coin", "SAFE", ""), cfg)
	assert.False(t, res.Pass)
	assert.Equal(t, ReasonBlockedWord, res.Reason)
	assert.Equal(t, "scam", res.Detail)

	// Symbol is checked too.
	res = Evaluate(event("Fine", "SCAMX", ""), cfg)
	assert.Equal(t, ReasonBlockedWord, res.Reason)
}

func TestEvaluate_BlockedWordWinsOverKeyword(t *testing.T) {
	// A name with both a blocked word and a required keyword is rejected
	// as blocked: the check order is fixed.
	cfg := &Config{
		BlockedWords: []string{"scam"},
		NameContains: []string{"doge"},
	}
	cfg.Normalize()

	res := Evaluate(event("DogeScam", "DS", ""), cfg)
	assert.False(t, res.Pass)
	assert.Equal(t, ReasonBlockedWord, res.Reason)
}

func TestEvaluate_NameLengthBounds(t *testing.T) {
	cfg := &Config{MinNameLength: 3, MaxNameLength: 10}
	cfg.Normalize()

	res := Evaluate(event("ab", "AB", ""), cfg)
	assert.Equal(t, ReasonLengthOutOfRange, res.Reason)

	res = Evaluate(event("much too long name", "L", ""), cfg)
	assert.Equal(t, ReasonLengthOutOfRange, res.Reason)

	res = Evaluate(event("JustRight", "JR", ""), cfg)
	assert.True(t, res.Pass)
}

func TestEvaluate_CreatorAllowlist(t *testing.T) {
	cfg := &Config{CreatorAllowlist: []string{"goodCreator"}}
	cfg.Normalize()

	res := Evaluate(event("Token", "TKN", "badCreator"), cfg)
	assert.Equal(t, ReasonCreatorNotAllowed, res.Reason)

	res = Evaluate(event("Token", "TKN", "goodCreator"), cfg)
	assert.True(t, res.Pass)
}

func TestEvaluate_KeywordMatch(t *testing.T) {
	cfg := &Config{
		NameContains:   []string{"doge"},
		SymbolContains: []string{"pepe"},
	}
	cfg.Normalize()

	// Name keyword matches.
	res := Evaluate(event("DogeCoin2.0", "DOGE2", ""), cfg)
	assert.True(t, res.Pass)
	assert.Contains(t, res.TriggeredBy, "name contains: doge")

	// Symbol keyword matches.
	res = Evaluate(event("Frog Token", "PEPE", ""), cfg)
	assert.True(t, res.Pass)
	assert.Contains(t, res.TriggeredBy, "symbol contains: pepe")

	// Neither matches.
	res = Evaluate(event("Cat Token", "CAT", ""), cfg)
	assert.False(t, res.Pass)
	assert.Equal(t, ReasonNoKeywordMatch, res.Reason)
}

func TestEvaluate_CaseInsensitive(t *testing.T) {
	cfg := &Config{NameContains: []string{"DoGe"}}
	cfg.Normalize()

	res := Evaluate(event("MYDOGE", "X", ""), cfg)
	assert.True(t, res.Pass)
}

func TestEvaluate_Deterministic(t *testing.T) {
	cfg := &Config{
		BlockedWords:  []string{"rug"},
		NameContains:  []string{"moon"},
		MinNameLength: 2,
		MaxNameLength: 32,
	}
	cfg.Normalize()

	e := event("MoonRug", "MR", "c")
	first := Evaluate(e, cfg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(e, cfg))
	}
}
