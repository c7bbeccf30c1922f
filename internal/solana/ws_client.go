package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrAuth indicates the endpoint rejected the handshake with an auth failure.
// The session does not retry; the caller must treat it as terminal.
var ErrAuth = errors.New("websocket authentication rejected")

// SessionConfig configures subscription session behavior.
type SessionConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// BackoffFactor multiplies the delay after each failed attempt.
	BackoffFactor float64
	// JitterFrac randomizes each delay by ±frac to avoid thundering herds.
	JitterFrac float64
	// ConnectAttempts is the dial budget for the initial Open.
	ConnectAttempts int
	// PingInterval is the keepalive ping cadence.
	PingInterval time.Duration
	// ReadTimeout bounds each read; missed heartbeats surface as read errors.
	ReadTimeout time.Duration
	// WriteTimeout bounds each write.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// BufferSize is the notification channel capacity.
	BufferSize int
}

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 60 * time.Second,
		BackoffFactor:     2.0,
		JitterFrac:        0.2,
		ConnectAttempts:   5,
		PingInterval:      20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		BufferSize:        1000,
	}
}

// SessionOptions contains the dependencies for opening a session.
type SessionOptions struct {
	Endpoint string
	Filter   LogsFilter
	Config   *SessionConfig // nil uses DefaultSessionConfig
	Logger   *log.Logger
	OnState  StateListener
}

// Session maintains exactly one logical logs subscription against an RPC
// websocket endpoint. It reconnects transparently on transport failure and
// re-issues the subscription; frames lost during the gap are not replayed.
type Session struct {
	endpoint string
	filter   LogsFilter
	cfg      SessionConfig
	logger   *log.Logger
	onState  StateListener

	conn      *websocket.Conn
	connMu    sync.Mutex
	requestID atomic.Uint64

	state  atomic.Int32
	notifs chan LogNotification

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open dials the endpoint and establishes the subscription. It retries the
// initial handshake up to the configured attempt budget and fails if the
// budget is exhausted. Auth rejection aborts immediately with ErrAuth.
func Open(ctx context.Context, opts SessionOptions) (*Session, error) {
	cfg := DefaultSessionConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Session{
		endpoint: opts.Endpoint,
		filter:   opts.Filter,
		cfg:      cfg,
		logger:   logger,
		onState:  opts.OnState,
		notifs:   make(chan LogNotification, cfg.BufferSize),
		done:     make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	var lastErr error
	delay := cfg.ReconnectDelay
	for attempt := 1; attempt <= cfg.ConnectAttempts; attempt++ {
		err := s.connectAndSubscribe(ctx)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if errors.Is(err, ErrAuth) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Printf("[ws] connect attempt %d/%d failed: %v", attempt, cfg.ConnectAttempts, err)

		select {
		case <-time.After(s.jittered(delay)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = s.nextDelay(delay)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("open session after %d attempts: %w", cfg.ConnectAttempts, lastErr)
	}

	s.setState(StateSubscribed)

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Notifications returns the inbound frame stream. The channel is closed when
// the session reaches its terminal state; it is not restartable.
func (s *Session) Notifications() <-chan LogNotification {
	return s.notifs
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Close shuts the session down. In-flight reconnect attempts are abandoned.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.connMu.Lock()
		if s.conn != nil {
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.cfg.WriteTimeout))
			s.conn.Close()
		}
		s.connMu.Unlock()

		s.setState(StateClosed)
	})
	return nil
}

// connectAndSubscribe dials, issues logsSubscribe and waits for confirmation.
func (s *Session) connectAndSubscribe(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: endpoint returned %d", ErrAuth, resp.StatusCode)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	commitment := s.filter.Commitment
	if commitment == "" {
		commitment = "processed"
	}

	mentionsFilter := make(map[string]interface{})
	if len(s.filter.Mentions) > 0 {
		mentionsFilter["mentions"] = s.filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentionsFilter,
			map[string]string{"commitment": commitment},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	// The confirmation is the first response carrying our request ID.
	// Notifications may arrive before it on busy endpoints; they are dropped,
	// which is covered by the at-most-once-per-connection contract.
	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	for {
		var confirm wsSubscribeResponse
		if err := conn.ReadJSON(&confirm); err != nil {
			conn.Close()
			return fmt.Errorf("read subscribe confirmation: %w", err)
		}
		if confirm.Error != nil {
			conn.Close()
			return fmt.Errorf("subscribe rejected: %s (code %d)", confirm.Error.Message, confirm.Error.Code)
		}
		if confirm.ID == req.ID {
			s.logger.Printf("[ws] subscription confirmed, id=%d", confirm.Result)
			break
		}
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.connMu.Unlock()

	return nil
}

// readLoop reads frames and drives reconnection.
func (s *Session) readLoop() {
	defer s.wg.Done()
	defer close(s.notifs)

	for {
		conn := s.currentConn()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.isDone() {
				return
			}
			s.logger.Printf("[ws] read error, reconnecting: %v", err)
			s.setState(StateReconnecting)
			if !s.reconnect() {
				s.setState(StateClosed)
				return
			}
			s.setState(StateSubscribed)
			continue
		}

		s.handleMessage(message)
	}
}

// reconnect retries connectAndSubscribe with jittered exponential backoff
// until it succeeds, the session is closed, or an auth rejection occurs.
// Returns false when the session must terminate.
func (s *Session) reconnect() bool {
	delay := s.cfg.ReconnectDelay
	for {
		select {
		case <-s.done:
			return false
		case <-time.After(s.jittered(delay)):
		}
		delay = s.nextDelay(delay)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HandshakeTimeout+s.cfg.ReadTimeout)
		err := s.connectAndSubscribe(ctx)
		cancel()

		if err == nil {
			// Close may have raced the subscribe; the new conn must not
			// outlive the session.
			if s.isDone() {
				s.connMu.Lock()
				if s.conn != nil {
					s.conn.Close()
				}
				s.connMu.Unlock()
				return false
			}
			s.logger.Printf("[ws] resubscribed after reconnect")
			return true
		}
		if errors.Is(err, ErrAuth) {
			s.logger.Printf("[ws] terminal auth failure during reconnect: %v", err)
			return false
		}
		if s.isDone() {
			return false
		}
		s.logger.Printf("[ws] reconnect failed, next attempt in ~%v: %v", delay, err)
	}
}

// pingLoop sends keepalive pings until shutdown.
func (s *Session) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			conn := s.currentConn()
			if conn == nil {
				return
			}
			// A failed ping is noticed by the read loop as a dead connection.
			conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
		}
	}
}

// handleMessage parses one inbound frame and forwards logsNotification values.
func (s *Session) handleMessage(message []byte) {
	var notif wsLogsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		s.logger.Printf("[ws] unparseable frame dropped: %v", err)
		return
	}
	if notif.Method != "logsNotification" {
		return
	}

	n := LogNotification{
		Signature: notif.Params.Result.Value.Signature,
		Slot:      notif.Params.Result.Context.Slot,
		Logs:      notif.Params.Result.Value.Logs,
		Err:       notif.Params.Result.Value.Err,
	}

	select {
	case s.notifs <- n:
	case <-s.done:
	}
}

func (s *Session) currentConn() *websocket.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

func (s *Session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) setState(to SessionState) {
	from := SessionState(s.state.Swap(int32(to)))
	if from != to && s.onState != nil {
		s.onState(from, to)
	}
}

// jittered randomizes d by ±JitterFrac.
func (s *Session) jittered(d time.Duration) time.Duration {
	if s.cfg.JitterFrac <= 0 {
		return d
	}
	frac := 1 + s.cfg.JitterFrac*(2*rand.Float64()-1)
	return time.Duration(float64(d) * frac)
}

// nextDelay advances the backoff, capped at MaxReconnectDelay.
func (s *Session) nextDelay(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * s.cfg.BackoffFactor)
	if next > s.cfg.MaxReconnectDelay {
		next = s.cfg.MaxReconnectDelay
	}
	return next
}

// wsRequest is a JSON-RPC 2.0 request.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsSubscribeResponse is the confirmation for a subscribe request.
type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// wsLogsNotification is an inbound logsNotification frame.
type wsLogsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context struct {
				Slot int64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string      `json:"signature"`
				Err       interface{} `json:"err"`
				Logs      []string    `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}
