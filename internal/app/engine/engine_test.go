package engine

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"howdybot/internal/app/bus"
	"howdybot/internal/app/state"
	"howdybot/internal/app/wire"
	"howdybot/internal/pkg/errs"
)

// wsAddrNobodyListensOn returns a ws:// URL to a port that was just released,
// so dials fail immediately.
func wsAddrNobodyListensOn(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "ws://" + addr
}

func TestSessionLifecycle(t *testing.T) {
	outbound := make(chan wire.Frame, 16)
	done := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "tok-1" {
			t.Errorf("dial carried token %q, want tok-1", got)
		}

		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		readFrame := func() wire.Frame {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return nil
			}
			frame, err := wire.Parse(raw)
			if err != nil {
				return nil
			}
			outbound <- frame
			return frame
		}
		send := func(s string) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(s))
		}

		if frame := readFrame(); frame == nil || frame.Handler() != wire.HandlerLogin {
			return
		}
		send(`{"handler":"login","success":true,"userID":"u-bot"}`)

		if frame := readFrame(); frame == nil || frame.Handler() != wire.HandlerJoinChatroom {
			return
		}
		send(`{"handler":"joinchatroom","roomid":"r-1","name":"Lounge"}`)

		// Malformed and discriminator-less frames must be dropped without
		// killing the session.
		send(`{"handler": busted`)
		send(`{"text":"no discriminator"}`)
		send(`{"handler":"activeoccupants","users":[{"userID":"u-9","username":"alice"}]}`)
		send(`{"handler":"chatroommessage","roomid":"r-1","userID":"u-9","text":"!info"}`)

		<-done
	}))
	defer server.Close()

	store := state.NewStore()
	session := NewSession("tok-1", "howdy", "Lounge", "")
	eng := New(Config{
		WSURL:                "ws" + strings.TrimPrefix(server.URL, "http"),
		MaxReconnectAttempts: 1,
		BackoffCap:           time.Millisecond,
		SendInterval:         time.Millisecond,
	}, session, store, bus.New(8))

	received := make(chan wire.Frame, 1)
	eng.On("event:chatroommessage", "test.capture", func(frame wire.Frame) {
		received <- frame
	})

	runDone := make(chan error, 1)
	go func() { runDone <- eng.Run() }()

	var chat wire.Frame
	select {
	case chat = <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("chat frame never dispatched")
	}
	if chat.String("text") != "!info" {
		t.Fatalf("dispatched frame = %v", chat)
	}

	// State was folded in before dispatch.
	if id := session.OwnID(); id != "u-bot" {
		t.Fatalf("OwnID = %q, want u-bot", id)
	}
	if room, ok := store.Room("r-1"); !ok || room.Name != "Lounge" {
		t.Fatalf("Room(r-1) = %+v, %v", room, ok)
	}
	if _, ok := store.UserByHandle("alice"); !ok {
		t.Fatal("roster listing not folded into the user map")
	}

	// The wire login handshake is the first outbound frame, then the
	// automatic default room join.
	first := <-outbound
	if first.String("username") != "howdy" || first.String("token") != "tok-1" {
		t.Fatalf("login handshake = %v", first)
	}
	if first.String("id") == "" {
		t.Fatal("outbound frame missing correlation id")
	}
	second := <-outbound
	if second.String("name") != "Lounge" {
		t.Fatalf("default room join = %v", second)
	}

	// Sending while connected resolves the default room.
	if err := eng.SendText("", "hello", false); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	eng.Stop()
	eng.Stop() // second call is a no-op

	close(done)
	if err := <-runDone; err != nil {
		t.Fatalf("Run after Stop = %v, want nil", err)
	}
	if status, _ := store.Status(); status != state.StatusStopped {
		t.Fatalf("status after stop = %q", status)
	}
}

func TestRetryBudgetExhaustion(t *testing.T) {
	store := state.NewStore()
	eng := New(Config{
		WSURL:                wsAddrNobodyListensOn(t),
		MaxReconnectAttempts: 3,
		BackoffCap:           time.Millisecond,
		SendInterval:         time.Millisecond,
	}, NewSession("tok", "howdy", "Lounge", ""), store, bus.New(1))

	err := eng.Run()
	if err == nil {
		t.Fatal("expected retry exhaustion error")
	}
	var cerr *errs.CustomError
	if !errors.As(err, &cerr) || cerr.Code != errs.ErrRetryBudgetExhausted {
		t.Fatalf("err = %v, want retry budget exhaustion", err)
	}

	status, attempt := store.Status()
	if status != state.StatusFailed {
		t.Fatalf("status = %q, want failed", status)
	}
	if attempt != 3 {
		t.Fatalf("attempt = %d, want the configured maximum 3", attempt)
	}

	// A stop requested after permanent failure must not mask the failure:
	// Run has already returned, so nothing would ever write stopped, and a
	// lingering "stopping" would hide that the session is dead.
	eng.Stop()
	status, attempt = store.Status()
	if status != state.StatusFailed {
		t.Fatalf("status = %q after Stop, want failed to remain", status)
	}
	if attempt != 3 {
		t.Fatalf("attempt = %d after Stop, want 3 preserved", attempt)
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	eng := New(Config{WSURL: "ws://127.0.0.1:1"}, NewSession("tok", "howdy", "Lounge", ""), state.NewStore(), bus.New(1))

	err := eng.Send(wire.RoomText("r-1", "hi"))
	var cerr *errs.CustomError
	if !errors.As(err, &cerr) || cerr.Code != errs.ErrNotConnected {
		t.Fatalf("err = %v, want not-connected", err)
	}
}

func TestSendTextUnknownRoom(t *testing.T) {
	eng := New(Config{WSURL: "ws://127.0.0.1:1"}, NewSession("tok", "howdy", "Lounge", ""), state.NewStore(), bus.New(1))

	err := eng.SendText("r-404", "hi", false)
	var cerr *errs.CustomError
	if !errors.As(err, &cerr) || cerr.Code != errs.ErrRoomUnknown {
		t.Fatalf("err = %v, want unknown room", err)
	}
}

func TestStopBeforeRunUnblocksBackoff(t *testing.T) {
	store := state.NewStore()
	eng := New(Config{
		WSURL:                wsAddrNobodyListensOn(t),
		MaxReconnectAttempts: 100,
		BackoffCap:           time.Hour,
		SendInterval:         time.Millisecond,
	}, NewSession("tok", "howdy", "Lounge", ""), store, bus.New(1))

	runDone := make(chan error, 1)
	go func() { runDone <- eng.Run() }()

	// Let the first dial fail so Run is parked in the backoff wait.
	time.Sleep(100 * time.Millisecond)
	eng.Stop()

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run = %v, want nil on requested stop", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not unblock the backoff wait")
	}
	if status, _ := store.Status(); status != state.StatusStopped {
		t.Fatalf("status = %q, want stopped", status)
	}
}

func TestBackoffDelay(t *testing.T) {
	ceiling := 30 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{63, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempt, ceiling); got != tc.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}

	if got := backoffDelay(3, 0); got != 8*time.Second {
		t.Errorf("zero ceiling should fall back to 30s cap, got %v for attempt 3", got)
	}
}

func TestSessionOwnIDFirstWriterWins(t *testing.T) {
	session := NewSession("tok", "howdy", "Lounge", "")

	if session.SetOwnID("") {
		t.Fatal("empty id must not be stored")
	}
	if !session.SetOwnID("u-1") {
		t.Fatal("first non-empty id must be stored")
	}
	if session.SetOwnID("u-2") {
		t.Fatal("second writer must lose")
	}
	if session.OwnID() != "u-1" {
		t.Fatalf("OwnID = %q, want u-1", session.OwnID())
	}

	preset := NewSession("tok", "howdy", "Lounge", "u-rest")
	if preset.SetOwnID("u-wire") {
		t.Fatal("construction-time id must win")
	}
	if preset.OwnID() != "u-rest" {
		t.Fatalf("OwnID = %q, want u-rest", preset.OwnID())
	}
}
