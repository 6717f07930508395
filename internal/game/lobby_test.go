package game

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/mickarin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGameCode(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{5}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, re, GenerateGameCode())
	}
}

func TestCreateGame(t *testing.T) {
	m, code, tokens, mb := setupLobby(t, instantRules(), yobCell0)

	assert.Regexp(t, `^[A-Z0-9]{5}$`, code)
	ev := mb.last(tokens[0])
	require.NotNil(t, ev)
	assert.Equal(t, EventLobbyUpdate, ev.Type)
	require.NotNil(t, ev.State)
	assert.Equal(t, models.StatusLobby, ev.State.Status)
	assert.Equal(t, 0, ev.State.HostID)
	assert.True(t, ev.State.Players[0].IsHost)

	exists, err := m.Exists(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = m.CreateGame(context.Background(), uuid.New(), "   ", 1990)
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = m.CreateGame(context.Background(), uuid.New(), "Bob", 0)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestJoinGameValidation(t *testing.T) {
	m, code, _, mb := setupLobby(t, instantRules(), yobCell0, yobCell27)
	ctx := context.Background()

	tok := uuid.New()
	assert.ErrorIs(t, m.JoinGame(ctx, tok, code, "b", 1990), ErrNameTaken)
	assert.ErrorIs(t, m.JoinGame(ctx, tok, "ZZZZZ", "Carl", 1990), ErrGameNotFound)
	ev := mb.last(tok)
	require.NotNil(t, ev)
	assert.Equal(t, EventError, ev.Type)

	require.NoError(t, m.JoinGame(ctx, tok, code, "Carl", 1990))
	assert.ErrorIs(t, m.JoinGame(ctx, tok, code, "Carl2", 1990), ErrInvalidAction, "a connection holds one seat")

	for i := 3; i < models.MaxPlayers; i++ {
		require.NoError(t, m.JoinGame(ctx, uuid.New(), code, fmt.Sprintf("P%d", i), 1990))
	}
	assert.ErrorIs(t, m.JoinGame(ctx, uuid.New(), code, "Late", 1990), ErrGameFull)
	assert.Len(t, snapshot(t, m, code).Players, models.MaxPlayers)
}

func TestJoinGameCodeIsCaseInsensitive(t *testing.T) {
	m, code, _, _ := setupLobby(t, instantRules(), yobCell0)
	require.NoError(t, m.JoinGame(context.Background(), uuid.New(), " "+strings.ToLower(code)+" ", "B", 1990))
	assert.Len(t, snapshot(t, m, code).Players, 2)
}

func TestStartGameRules(t *testing.T) {
	m, code, tokens, mb := setupLobby(t, instantRules(), yobCell0)
	ctx := context.Background()

	assert.ErrorIs(t, m.StartGame(ctx, tokens[0], code), ErrInvalidAction, "two players are needed")

	guest := uuid.New()
	require.NoError(t, m.JoinGame(ctx, guest, code, "B", 1990))
	assert.ErrorIs(t, m.StartGame(ctx, guest, code), ErrNotHost)
	assert.ErrorIs(t, m.StartGame(ctx, uuid.New(), code), ErrNotInGame)

	mb.clear()
	require.NoError(t, m.StartGame(ctx, tokens[0], code))
	g := snapshot(t, m, code)
	assert.Equal(t, models.StatusInProgress, g.Status)
	assert.Equal(t, models.TurnStart, g.TurnState)
	assert.Len(t, g.TileMachine, len(models.Signs)*len(models.Colors))
	assert.Equal(t, 0, g.CurrentPlayerIndex)

	started := mb.ofType(guest, EventGameStarted)
	require.Len(t, started, 1)
	assert.Equal(t, HiddenMoney, started[0].State.Players[0].Money)

	assert.ErrorIs(t, m.StartGame(ctx, tokens[0], code), ErrGameStarted)
}

func TestMachineHoldsEveryTileOnce(t *testing.T) {
	m, code, tokens, _ := setupLobby(t, instantRules(), yobCell0, yobCell27)
	require.NoError(t, m.StartGame(context.Background(), tokens[0], code))

	g := snapshot(t, m, code)
	seen := make(map[string]bool)
	specials := 0
	for _, tile := range g.TileMachine {
		assert.False(t, seen[tile.Key()], "duplicate %s", tile.Key())
		seen[tile.Key()] = true
		if tile.IsSpecial {
			specials++
		}
	}
	assert.Len(t, seen, 72)
	assert.Equal(t, len(models.Signs), specials)
}

func TestHostLeavingClosesLobby(t *testing.T) {
	mb := newMockBroadcaster()
	store := NewMemoryStore()
	m := NewManager(store, mb.send, quietLogger(), WithRules(instantRules()))
	ctx := context.Background()
	host, guest := uuid.New(), uuid.New()
	code, err := m.CreateGame(ctx, host, "A", yobCell0)
	require.NoError(t, err)
	require.NoError(t, m.JoinGame(ctx, guest, code, "B", yobCell27))
	require.Equal(t, 1, store.Len())

	require.NoError(t, m.LeaveGame(ctx, host, code))

	ev := mb.last(guest)
	require.NotNil(t, ev)
	assert.Equal(t, EventLobbyClosed, ev.Type)
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, m.JoinGame(ctx, uuid.New(), code, "C", 1990), ErrGameNotFound)
}

func TestGuestLeavingLobbyKeepsIDsMonotonic(t *testing.T) {
	m, code, tokens, _ := setupLobby(t, instantRules(), yobCell0, yobCell27)
	ctx := context.Background()

	require.NoError(t, m.LeaveGame(ctx, tokens[1], code))
	require.NoError(t, m.JoinGame(ctx, uuid.New(), code, "C", 1990))

	g := snapshot(t, m, code)
	require.Len(t, g.Players, 2)
	assert.Equal(t, 2, g.Players[1].ID, "ids are never reused")
	assert.Equal(t, models.PlayerColors[2], g.Players[1].Color)
}

func TestReconnectByName(t *testing.T) {
	m, code, tokens, mb := setupTestGame(t, instantRules(), yobCell0, yobCell27)
	ctx := context.Background()

	require.NoError(t, m.Disconnect(ctx, tokens[1], code))
	g := snapshot(t, m, code)
	assert.True(t, g.PlayerByID(1).IsDisconnected)

	ev := mb.last(tokens[0])
	require.NotNil(t, ev)
	assert.True(t, ev.State.Players[1].IsDisconnected)

	fresh := uuid.New()
	require.NoError(t, m.JoinGame(ctx, fresh, code, "b", 1950))
	g = snapshot(t, m, code)
	assert.False(t, g.PlayerByID(1).IsDisconnected)
	assert.Len(t, g.Players, 2)

	require.Len(t, mb.ofType(fresh, EventReconnectSuccess), 1)

	m.dice = sequence(1)
	require.NoError(t, m.RollDice(ctx, tokens[0], code))
	require.NoError(t, m.RollDice(ctx, fresh, code), "the new connection drives the seat")
	assert.ErrorIs(t, m.RollDice(ctx, tokens[1], code), ErrNotInGame)
}

func TestAuctionSkipsDisconnectedBidders(t *testing.T) {
	m, code, tokens, _ := setupTestGame(t, instantRules(), yobCell0, yobCell27, yobCell33)
	require.NoError(t, m.Disconnect(context.Background(), tokens[1], code))
	reachAuction(t, m, code, tokens)

	g := snapshot(t, m, code)
	require.Len(t, g.AuctionState.Bidders, 2)
	assert.Equal(t, 0, g.AuctionState.Bidders[0].PlayerID)
	assert.Equal(t, 2, g.AuctionState.Bidders[1].PlayerID)
}

// fakeIssuer encodes code and player id in plain text.
type fakeIssuer struct{}

func (fakeIssuer) Issue(code string, playerID int) (string, error) {
	return fmt.Sprintf("%s:%d", code, playerID), nil
}

func (fakeIssuer) Verify(token string) (string, int, error) {
	var code string
	var id int
	if len(token) < 7 {
		return "", 0, errors.New("malformed")
	}
	code = token[:5]
	if _, err := fmt.Sscanf(token[6:], "%d", &id); err != nil {
		return "", 0, err
	}
	return code, id, nil
}

func TestResumeWithSessionToken(t *testing.T) {
	mb := newMockBroadcaster()
	store := NewMemoryStore()
	m := NewManager(store, mb.send, quietLogger(), WithRules(instantRules()), WithSessionIssuer(fakeIssuer{}))
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	code, err := m.CreateGame(ctx, a, "A", yobCell0)
	require.NoError(t, err)
	require.NoError(t, m.JoinGame(ctx, b, code, "B", yobCell27))
	require.NoError(t, m.StartGame(ctx, a, code))

	sessions := mb.ofType(b, EventSession)
	require.NotEmpty(t, sessions)
	tok := sessions[0].SessionToken
	require.Equal(t, code+":1", tok)

	// A fresh manager over the same store simulates a restart.
	mb2 := newMockBroadcaster()
	m2 := NewManager(store, mb2.send, quietLogger(), WithRules(instantRules()), WithSessionIssuer(fakeIssuer{}))
	g := snapshot(t, m2, code)
	for _, p := range g.Players {
		assert.True(t, p.IsDisconnected, "no connection survives a reload")
	}

	fresh := uuid.New()
	gotCode, err := m2.ResumeGame(ctx, fresh, tok)
	require.NoError(t, err)
	assert.Equal(t, code, gotCode)
	assert.False(t, snapshot(t, m2, code).PlayerByID(1).IsDisconnected)
	require.Len(t, mb2.ofType(fresh, EventReconnectSuccess), 1)

	_, err = m2.ResumeGame(ctx, uuid.New(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestExistsDoesNotLoadGame(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, nil, quietLogger(), WithRules(Rules{TurnTimeout: time.Minute}))
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	code, err := m.CreateGame(ctx, a, "A", yobCell0)
	require.NoError(t, err)
	require.NoError(t, m.JoinGame(ctx, b, code, "B", yobCell27))
	require.NoError(t, m.StartGame(ctx, a, code))
	t.Cleanup(m.Shutdown)

	ok, err := m.Exists(ctx, strings.ToLower(code))
	require.NoError(t, err)
	assert.True(t, ok, "resident game")

	m2 := NewManager(store, nil, quietLogger(), WithRules(Rules{TurnTimeout: time.Minute}))
	ok, err = m2.Exists(ctx, code)
	require.NoError(t, err)
	assert.True(t, ok, "stored game")
	m2.mu.Lock()
	assert.Empty(t, m2.sessions, "a lookup must not arm the stored game's timers")
	m2.mu.Unlock()

	ok, err = m2.Exists(ctx, "ZZZZZ")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m2.Exists(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, ok)
}
