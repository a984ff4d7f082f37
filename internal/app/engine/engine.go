/*
Package engine implements the connection supervisor.

This file contains the Engine itself: the reconnecting transport state
machine. Run drives dial → authenticate → receive until the transport ends,
then applies exponential backoff and retries within a bounded attempt
budget. Stop is the only cancellation primitive; it is cooperative and
idempotent.
*/
package engine

import (
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"howdybot/internal/app/bus"
	"howdybot/internal/app/state"
	"howdybot/internal/pkg/errs"
	"howdybot/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed between reads before the connection is
	// considered dead. Pongs and regular traffic both extend it.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = 20 * time.Second

	// maximum allowed size (in bytes) of an inbound frame.
	maxFrameSize = 1 << 20
)

// Config carries the supervisor's tunables, loaded from the environment by
// the configs package.
type Config struct {
	// WSURL is the websocket endpoint; the session token is appended as a
	// query parameter at dial time.
	WSURL string

	// MaxReconnectAttempts is the retry budget. When this many consecutive
	// connection attempts fail, the engine fails permanently.
	MaxReconnectAttempts int

	// BackoffCap bounds the exponential reconnect delay.
	BackoffCap time.Duration

	// SendInterval is the minimum spacing between outbound frames,
	// enforced to avoid protocol-level flood rejection.
	SendInterval time.Duration
}

// Engine supervises one wire session. Create with New, drive with Run on a
// dedicated goroutine, terminate with Stop. A stopped or permanently failed
// engine cannot be restarted; create a fresh one.
type Engine struct {
	cfg     Config
	session *Session
	store   *state.Store
	bus     *bus.Bus

	// running is the cooperative "should keep running" flag.
	running atomic.Bool

	// connected reports whether a live, authenticated transport exists.
	connected atomic.Bool

	// attempts counts consecutive failed connection attempts.
	attempts int

	connMu sync.Mutex
	conn   *websocket.Conn

	// writeMu serializes frame writes; gorilla permits one concurrent writer.
	writeMu sync.Mutex

	sendLimiter *rate.Limiter

	stopOnce sync.Once
	stopc    chan struct{}

	logger zerolog.Logger
}

// New constructs an engine in the initialized state. No I/O happens until
// Run is called.
func New(cfg Config, session *Session, store *state.Store, dispatcher *bus.Bus) *Engine {
	interval := cfg.SendInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	engine := &Engine{
		cfg:         cfg,
		session:     session,
		store:       store,
		bus:         dispatcher,
		sendLimiter: rate.NewLimiter(rate.Every(interval), 1),
		stopc:       make(chan struct{}),
		logger: logx.Logger().With().
			Str("component", "engine").
			Str("handle", session.Handle()).
			Logger(),
	}
	engine.running.Store(true)
	store.SetStatus(state.StatusInitialized, 0)
	return engine
}

// Bus exposes the event dispatcher for handler registration.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// State exposes the shared state store.
func (e *Engine) State() *state.Store { return e.store }

// Session exposes the session identity.
func (e *Engine) Session() *Session { return e.session }

// On registers an event handler; shorthand for Bus().On.
func (e *Engine) On(event, handlerName string, fn bus.Handler) {
	e.bus.On(event, handlerName, fn)
}

// Run drives the connection loop until Stop is called or the retry budget
// is exhausted. It blocks the calling goroutine for the engine's lifetime.
// Retry exhaustion is the only error return; a requested stop returns nil.
func (e *Engine) Run() error {
	e.store.SetStatus(state.StatusStarting, 0)
	e.logger.Info().Msg("Connection supervisor starting.")

	for e.running.Load() {
		e.connectOnce()

		if !e.running.Load() {
			break
		}

		e.attempts++
		if e.attempts >= e.cfg.MaxReconnectAttempts {
			e.store.SetStatus(state.StatusFailed, e.attempts)
			e.logger.Error().
				Int("attempts", e.attempts).
				Msg("Max reconnect attempts reached. Session is dead; external restart required.")
			return errs.NewError(errs.ErrRetryBudgetExhausted, e.attempts)
		}

		delay := backoffDelay(e.attempts, e.cfg.BackoffCap)
		e.store.SetStatus(state.StatusReconnecting, e.attempts)
		e.logger.Warn().
			Int("attempt", e.attempts).
			Int("max_attempts", e.cfg.MaxReconnectAttempts).
			Dur("delay", delay).
			Msg("Transport down. Reconnecting after backoff.")

		select {
		case <-time.After(delay):
		case <-e.stopc:
		}
	}

	e.store.SetStatus(state.StatusStopped, 0)
	e.logger.Info().Msg("Connection supervisor stopped.")
	return nil
}

// connectOnce performs one full connection cycle: dial, authenticate on the
// wire, then read frames until the transport ends. A dial failure and a
// mid-session transport failure are deliberately indistinguishable to the
// caller; both count against the retry budget.
func (e *Engine) connectOnce() {
	e.store.SetStatus(state.StatusConnecting, e.attempts)

	endpoint, err := e.dialURL()
	if err != nil {
		e.logger.Error().Err(err).Msg("Invalid websocket endpoint.")
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Dial failed.")
		return
	}

	e.setConn(conn)
	e.connected.Store(true)
	e.attempts = 0
	e.store.SetStatus(state.StatusConnected, 0)
	e.logger.Info().Msg("WebSocket connection opened.")

	// The REST login only yields a transport token; the wire session is not
	// authenticated until this handshake is acknowledged.
	if err := e.Send(loginHandshake(e.session)); err != nil {
		e.logger.Error().Err(err).Msg("Failed to send wire login handshake.")
	}

	done := make(chan struct{})
	go e.pingLoop(conn, done)

	e.readLoop(conn)

	close(done)
	e.connected.Store(false)
	e.setConn(nil)
	_ = conn.Close()

	if e.running.Load() {
		e.store.SetStatus(state.StatusDisconnected, e.attempts)
		e.logger.Warn().Msg("WebSocket connection closed.")
	}
}

// readLoop blocks reading frames until the transport errors or closes.
// A malformed frame never terminates the loop.
func (e *Engine) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				e.logger.Info().Err(err).Msg("Read loop ended.")
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		e.handleInbound(raw)
	}
}

// pingLoop sends periodic Ping frames to keep the session alive until done
// closes.
func (e *Engine) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				e.logger.Warn().Err(err).Msg("Ping write failed.")
				return
			}
		case <-done:
			return
		}
	}
}

// Stop requests a cooperative shutdown: it flips the run flag and forces the
// transport closed, unblocking Run. Idempotent; a second call is a no-op.
// A stop requested after the engine already reached a terminal status leaves
// that status in place, so the dashboard keeps seeing a dead session as dead.
// In-flight handler executions are not terminated and may complete after
// Stop returns.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.logger.Info().Msg("Stop requested.")
		e.store.SetStatusIfNotTerminal(state.StatusStopping, 0)
		e.running.Store(false)
		close(e.stopc)

		if conn := e.currentConn(); conn != nil {
			if err := conn.Close(); err != nil {
				e.logger.Warn().Err(err).Msg("Error closing transport on stop.")
			}
		}
	})
}

// Status returns the externally observable session status and, for the
// reconnecting/failed states, the attempt number.
func (e *Engine) Status() (state.Status, int) {
	return e.store.Status()
}

func (e *Engine) dialURL() (string, error) {
	parsed, err := url.Parse(e.cfg.WSURL)
	if err != nil {
		return "", err
	}

	query := parsed.Query()
	query.Set("token", e.session.Token())
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (e *Engine) setConn(conn *websocket.Conn) {
	e.connMu.Lock()
	e.conn = conn
	e.connMu.Unlock()
}

func (e *Engine) currentConn() *websocket.Conn {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.conn
}

// backoffDelay computes min(ceiling, 2^attempt seconds).
func backoffDelay(attempt int, ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		ceiling = 30 * time.Second
	}
	if attempt > 30 {
		return ceiling
	}

	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > ceiling {
		delay = ceiling
	}
	return delay
}
