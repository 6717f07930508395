package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/mickarin/internal/game"
	"github.com/jason-s-yu/mickarin/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// testServer runs the full router over an in-memory store.
func testServer(t *testing.T) (*httptest.Server, *game.Manager) {
	t.Helper()
	logger := quietLogger()
	hub := NewHub(logger)
	mgr := game.NewManager(game.NewMemoryStore(), hub.Send, logger,
		game.WithRules(game.Rules{TurnTimeout: time.Minute}))
	srv := NewServer(mgr, hub, logger, WithPublicURL("https://mickarin.example"))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		mgr.Shutdown()
	})
	return ts, mgr
}

func dial(t *testing.T, ts *httptest.Server, subprotocols ...string) *websocket.Conn {
	t.Helper()
	if subprotocols == nil {
		subprotocols = []string{Subprotocol}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: subprotocols})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, msg))
}

// readUntil discards events until one of type typ arrives.
func readUntil(t *testing.T, c *websocket.Conn, typ game.EventType) game.GameEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var ev game.GameEvent
		require.NoError(t, wsjson.Read(ctx, c, &ev), "waiting for %s", typ)
		if ev.Type == typ {
			return ev
		}
	}
}

func TestPingHandler(t *testing.T) {
	w := httptest.NewRecorder()
	PingHandler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestWebsocketPing(t *testing.T) {
	ts, _ := testServer(t)
	c := dial(t, ts)
	send(t, c, ClientMessage{Type: "ping"})
	readUntil(t, c, game.EventPong)
}

func TestCreateJoinStartOverWebsocket(t *testing.T) {
	ts, mgr := testServer(t)
	host := dial(t, ts)
	guest := dial(t, ts)

	send(t, host, ClientMessage{Type: "createGame", Name: "Alice", YearOfBirth: 1992})
	created := readUntil(t, host, game.EventLobbyUpdate)
	code := created.GameCode
	require.Regexp(t, `^[A-Z0-9]{5}$`, code)

	send(t, guest, ClientMessage{Type: "joinGame", GameCode: strings.ToLower(code), Name: "Bob", YearOfBirth: 1993})
	joined := readUntil(t, guest, game.EventLobbyUpdate)
	require.NotNil(t, joined.State)
	assert.Len(t, joined.State.Players, 2)
	assert.Equal(t, 1, joined.State.YourID)

	// The host is seated, so the code may be omitted.
	send(t, host, ClientMessage{Type: "startGame"})
	started := readUntil(t, guest, game.EventGameStarted)
	require.NotNil(t, started.State)
	assert.Equal(t, models.StatusInProgress, started.State.Status)
	assert.Equal(t, game.HiddenMoney, started.State.Players[0].Money)
	assert.EqualValues(t, models.StartingMoney, started.State.Players[1].Money)

	g, err := mgr.Snapshot(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, g.Status)
}

func TestRejectedActionIsPrivateError(t *testing.T) {
	ts, _ := testServer(t)
	c := dial(t, ts)

	send(t, c, ClientMessage{Type: "joinGame", GameCode: "ZZZZZ", Name: "Carl", YearOfBirth: 1990})
	ev := readUntil(t, c, game.EventError)
	assert.Equal(t, "Game not found.", ev.Message)

	send(t, c, ClientMessage{Type: "teleport"})
	ev = readUntil(t, c, game.EventError)
	assert.Contains(t, ev.Message, "teleport")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
	ev = readUntil(t, c, game.EventError)
	assert.Equal(t, "Invalid JSON format", ev.Message)
}

func TestClosingSocketDisconnectsSeat(t *testing.T) {
	ts, mgr := testServer(t)
	host := dial(t, ts)
	guest := dial(t, ts)

	send(t, host, ClientMessage{Type: "createGame", Name: "Alice", YearOfBirth: 1992})
	code := readUntil(t, host, game.EventLobbyUpdate).GameCode
	send(t, guest, ClientMessage{Type: "joinGame", GameCode: code, Name: "Bob", YearOfBirth: 1993})
	readUntil(t, guest, game.EventLobbyUpdate)

	require.NoError(t, guest.Close(websocket.StatusNormalClosure, "bye"))

	assert.Eventually(t, func() bool {
		g, err := mgr.Snapshot(context.Background(), code)
		return err == nil && len(g.Players) == 2 && g.Players[1].IsDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	// Joining under the same name takes the seat back.
	again := dial(t, ts)
	send(t, again, ClientMessage{Type: "joinGame", GameCode: code, Name: "bob", YearOfBirth: 1993})
	ev := readUntil(t, again, game.EventReconnectSuccess)
	assert.Equal(t, 1, ev.State.YourID)
}

func TestBadSubprotocolIsRejected(t *testing.T) {
	ts, _ := testServer(t)
	c := dial(t, ts, "chat")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestQRHandler(t *testing.T) {
	ts, mgr := testServer(t)
	code, err := mgr.CreateGame(context.Background(), uuid.New(), "Alice", 1992)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/games/" + strings.ToLower(code) + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	resp2, err := http.Get(ts.URL + "/games/ZZZZZ/qr")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	resp3, err := http.Get(ts.URL + "/games/" + code + "/qr?size=5")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestInviteContent(t *testing.T) {
	s := &Server{}
	assert.Equal(t, "AB12C", s.inviteContent("AB12C"))
	s.publicURL = "https://mickarin.example"
	assert.Equal(t, "https://mickarin.example/?join=AB12C", s.inviteContent("AB12C"))
}

func TestHubDropsWhenOutboxFull(t *testing.T) {
	h := NewHub(quietLogger())
	c := h.register()
	for i := 0; i < outboxSize+5; i++ {
		h.Send(c.id, game.GameEvent{Type: game.EventPong})
	}
	assert.Len(t, c.out, outboxSize)

	h.unregister(c)
	h.unregister(c)
	assert.Zero(t, h.Len())
	assert.NotPanics(t, func() { h.Send(c.id, game.GameEvent{Type: game.EventPong}) })
}
