package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpfun-alerts/internal/decode"
	"pumpfun-alerts/internal/dispatch"
	"pumpfun-alerts/internal/domain"
	"pumpfun-alerts/internal/filter"
	"pumpfun-alerts/internal/ratelimit"
	"pumpfun-alerts/internal/solana"
	"pumpfun-alerts/internal/stats"
	"pumpfun-alerts/internal/storage/memory"
)

// Well-formed mainnet addresses reused as test fixtures.
const (
	fixtureMint    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	fixtureCurve   = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	fixtureUser    = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	fixtureCreator = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

// stubSource feeds canned notifications to the runner.
type stubSource struct {
	ch        chan solana.LogNotification
	closeOnce sync.Once
}

func newStubSource() *stubSource {
	return &stubSource{ch: make(chan solana.LogNotification, 64)}
}

func (s *stubSource) Notifications() <-chan solana.LogNotification { return s.ch }

func (s *stubSource) Close() error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

func mustDecodePubkey(t *testing.T, addr string) []byte {
	t.Helper()
	raw, err := solana.DecodePubkey(addr)
	require.NoError(t, err)
	return raw
}

// creationFrame builds a notification carrying a valid Create payload.
func creationFrame(t *testing.T, signature string, slot int64, name, symbol, uri string) solana.LogNotification {
	t.Helper()

	var payload []byte
	payload = binary.LittleEndian.AppendUint64(payload, decode.CreateDiscriminator)
	for _, s := range []string{name, symbol, uri} {
		payload = binary.LittleEndian.AppendUint32(payload, uint32(len(s)))
		payload = append(payload, s...)
	}
	payload = append(payload, mustDecodePubkey(t, fixtureMint)...)
	payload = append(payload, mustDecodePubkey(t, fixtureCurve)...)
	payload = append(payload, mustDecodePubkey(t, fixtureUser)...)
	payload = append(payload, mustDecodePubkey(t, fixtureCreator)...)

	return solana.LogNotification{
		Signature: signature,
		Slot:      slot,
		Logs: []string{
			"Program log: Instruction: Create",
			"Program data: " + base64.StdEncoding.EncodeToString(payload),
		},
	}
}

type pipelineFixture struct {
	source   *stubSource
	recorder *stats.Recorder
	archive  *memory.EventArchive
	runner   *Runner

	requests chan []byte
	server   *httptest.Server
}

// newPipelineFixture builds a runner wired to one webhook endpoint.
func newPipelineFixture(t *testing.T, filterCfg filter.Config, limiterCfg ratelimit.Config) *pipelineFixture {
	t.Helper()

	requests := make(chan []byte, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- body
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	logger := log.New(io.Discard, "", 0)
	recorder := stats.NewRecorder()
	archive := memory.NewEventArchive()
	source := newStubSource()

	filterCfg.Normalize()

	dispatcher := dispatch.NewDispatcher(dispatch.Options{
		Channels: []dispatch.Channel{dispatch.NewWebhookChannel(server.URL, "webhook", server.Client())},
		Retry: dispatch.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Factor:      2.0,
		},
		Recorder: recorder,
		Logger:   logger,
	})

	runner := NewRunner(RunnerOptions{
		Source:               source,
		Decoder:              decode.NewDecoder(logger),
		Filter:               filterCfg,
		Limiter:              ratelimit.NewLimiter(limiterCfg),
		Dispatcher:           dispatcher,
		Recorder:             recorder,
		Archive:              archive,
		StatusInterval:       time.Hour,
		ArchiveFlushInterval: 10 * time.Millisecond,
		Logger:               logger,
	})

	return &pipelineFixture{
		source:   source,
		recorder: recorder,
		archive:  archive,
		runner:   runner,
		requests: requests,
		server:   server,
	}
}

func (f *pipelineFixture) run(t *testing.T) (cancel func()) {
	t.Helper()

	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.runner.Run(ctx)
	}()

	return func() {
		cancelCtx()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("runner did not stop")
		}
	}
}

func TestRunner_EndToEndAlert(t *testing.T) {
	f := newPipelineFixture(t,
		filter.Config{
			NameContains: []string{"doge"},
			BlockedWords: []string{"scam"},
		},
		ratelimit.Config{WindowDuration: time.Minute, MaxPerWindow: 10},
	)
	stop := f.run(t)
	defer stop()

	f.source.ch <- creationFrame(t, "sig-doge", 100, "DogeCoin2.0", "DOGE2", "https://example.com/doge.json")

	select {
	case body := <-f.requests:
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "creation_event", payload["alert_type"])

		token := payload["token"].(map[string]interface{})
		assert.Equal(t, "DogeCoin2.0", token["name"])
		assert.Equal(t, "DOGE2", token["symbol"])
		assert.Equal(t, "sig-doge", token["transaction_signature"])
		assert.Equal(t, fixtureMint, token["mint_address"])
	case <-time.After(5 * time.Second):
		t.Fatal("no alert delivered")
	}

	// Delivery counters are updated after the HTTP exchange completes,
	// which can be after the handler has already forwarded the body.
	require.Eventually(t, func() bool {
		return f.recorder.Snapshot().Dispatched["webhook"] == 1
	}, 5*time.Second, 10*time.Millisecond)

	snap := f.recorder.Snapshot()
	assert.Equal(t, uint64(1), snap.FramesSeen)
	assert.Equal(t, uint64(1), snap.EventsDecoded)
	assert.Equal(t, uint64(1), snap.Dispatched["webhook"])
}

func TestRunner_BlockedWordNeverAlerts(t *testing.T) {
	f := newPipelineFixture(t,
		filter.Config{
			NameContains: []string{"coin"},
			BlockedWords: []string{"scam"},
		},
		ratelimit.Config{},
	)
	stop := f.run(t)
	defer stop()

	f.source.ch <- creationFrame(t, "sig-scam", 101, "ScamCoin", "SCAM", "")

	require.Eventually(t, func() bool {
		return f.recorder.Snapshot().FilterRejects[string(filter.ReasonBlockedWord)] == 1
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case <-f.requests:
		t.Fatal("blocked event must not be delivered")
	case <-time.After(100 * time.Millisecond):
	}

	// Outcome lands in the archive.
	require.Eventually(t, func() bool {
		events := f.archive.All()
		return len(events) == 1 &&
			events[0].Outcome == domain.ArchiveOutcomeFilteredPrefix+string(filter.ReasonBlockedWord)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunner_RateLimitDropsExcess(t *testing.T) {
	f := newPipelineFixture(t,
		filter.Config{},
		ratelimit.Config{WindowDuration: time.Minute, MaxPerWindow: 1},
	)
	stop := f.run(t)
	defer stop()

	f.source.ch <- creationFrame(t, "sig-first", 102, "First", "FST", "")
	f.source.ch <- creationFrame(t, "sig-second", 103, "Second", "SND", "")

	require.Eventually(t, func() bool {
		snap := f.recorder.Snapshot()
		return snap.Dispatched["webhook"] == 1 && snap.RateLimited == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunner_FailedTransactionIgnored(t *testing.T) {
	f := newPipelineFixture(t, filter.Config{}, ratelimit.Config{})
	stop := f.run(t)
	defer stop()

	frame := creationFrame(t, "sig-failed", 104, "Broken", "BRK", "")
	frame.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	f.source.ch <- frame

	require.Eventually(t, func() bool {
		return f.recorder.Snapshot().FramesSeen == 1
	}, 5*time.Second, 10*time.Millisecond)

	snap := f.recorder.Snapshot()
	assert.Zero(t, snap.EventsDecoded)
}

func TestRunner_IrrelevantFramesAreCheap(t *testing.T) {
	f := newPipelineFixture(t, filter.Config{}, ratelimit.Config{})
	stop := f.run(t)
	defer stop()

	f.source.ch <- solana.LogNotification{
		Signature: "sig-noise",
		Slot:      105,
		Logs:      []string{"Program log: Instruction: Buy"},
	}

	require.Eventually(t, func() bool {
		return f.recorder.Snapshot().FramesSeen == 1
	}, 5*time.Second, 10*time.Millisecond)

	snap := f.recorder.Snapshot()
	assert.Zero(t, snap.EventsDecoded)
	assert.Zero(t, snap.DecodeErrors)
}

func TestRunner_StreamCloseStopsRun(t *testing.T) {
	f := newPipelineFixture(t, filter.Config{}, ratelimit.Config{})

	done := make(chan error, 1)
	go func() {
		done <- f.runner.Run(context.Background())
	}()

	f.source.Close()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after stream close")
	}
}
