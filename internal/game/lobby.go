package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/mickarin/internal/models"
	"github.com/sirupsen/logrus"
)

// CreateGame opens a new lobby hosted by the connection token and returns
// its code.
func (m *Manager) CreateGame(ctx context.Context, token uuid.UUID, name string, yearOfBirth int) (string, error) {
	name, err := validateIdentity(name, yearOfBirth)
	if err != nil {
		m.sendError(token, err)
		return "", err
	}
	code, err := m.uniqueCode(ctx)
	if err != nil {
		m.logger.WithError(err).Error("failed to allocate game code")
		m.sendError(token, err)
		return "", err
	}

	host := models.NewPlayer(0, name, yearOfBirth, token)
	g := models.NewGame(code, host)
	g.Log(fmt.Sprintf("%s created the game.", name))
	s := newSession(m, g)

	s.mu.Lock()
	defer s.mu.Unlock()
	m.mu.Lock()
	m.sessions[code] = s
	m.mu.Unlock()

	if err := m.store.Save(ctx, code, g); err != nil {
		m.logger.WithError(err).WithField("game", code).Error("failed to save new game")
		m.evict(s)
		err = fmt.Errorf("%w: %v", ErrStore, err)
		m.sendError(token, err)
		return "", err
	}
	m.logger.WithFields(logrus.Fields{"game": code, "host": name}).Info("game created")
	m.publish(s, host.ID, "createGame", map[string]interface{}{"name": name})
	m.issueSession(s, host)
	m.broadcast(s, EventLobbyUpdate)
	return code, nil
}

// JoinGame seats the connection in the game. A name matching a disconnected
// seat reconnects to it instead, at any point of the game.
func (m *Manager) JoinGame(ctx context.Context, token uuid.UUID, code, name string, yearOfBirth int) error {
	name = strings.TrimSpace(name)
	s, err := m.session(ctx, code)
	if err != nil {
		m.sendError(token, err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		m.sendError(token, ErrGameNotFound)
		return ErrGameNotFound
	}
	g := s.game
	if s.playerByToken(token) != nil {
		err := fmt.Errorf("%w: you are already in this game", ErrInvalidAction)
		m.sendError(token, err)
		return err
	}

	for _, p := range g.Players {
		if p.IsDisconnected && strings.EqualFold(p.Name, name) {
			return m.reconnect(ctx, s, p, token)
		}
	}

	err = func() error {
		if g.Status != models.StatusLobby {
			return ErrGameStarted
		}
		if len(g.Players) >= models.MaxPlayers {
			return ErrGameFull
		}
		var verr error
		if name, verr = validateIdentity(name, yearOfBirth); verr != nil {
			return verr
		}
		for _, p := range g.Players {
			if strings.EqualFold(p.Name, name) {
				return ErrNameTaken
			}
		}
		return nil
	}()
	if err != nil {
		m.sendError(token, err)
		return err
	}

	prev := g.Clone()
	p := models.NewPlayer(g.NextPlayerID, name, yearOfBirth, token)
	g.NextPlayerID++
	g.Players = append(g.Players, p)
	g.Log(fmt.Sprintf("%s joined the game.", name))
	if err := m.commit(ctx, s, prev, p.ID, "joinGame", map[string]interface{}{"name": name}, EventLobbyUpdate); err != nil {
		m.sendError(token, err)
		return err
	}
	m.issueSession(s, s.game.PlayerByID(p.ID))
	return nil
}

// ResumeGame rebinds a connection to the seat named by a session token.
func (m *Manager) ResumeGame(ctx context.Context, token uuid.UUID, sessionToken string) (string, error) {
	if m.issuer == nil {
		err := fmt.Errorf("%w: sessions are not enabled", ErrInvalidAction)
		m.sendError(token, err)
		return "", err
	}
	code, playerID, err := m.issuer.Verify(sessionToken)
	if err != nil {
		err = fmt.Errorf("%w: invalid or expired session", ErrInvalidAction)
		m.sendError(token, err)
		return "", err
	}
	s, err := m.session(ctx, code)
	if err != nil {
		m.sendError(token, err)
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		m.sendError(token, ErrGameNotFound)
		return "", ErrGameNotFound
	}
	p := s.game.PlayerByID(playerID)
	if p == nil {
		err := fmt.Errorf("%w: your seat no longer exists", ErrInvalidAction)
		m.sendError(token, err)
		return "", err
	}
	if err := m.reconnect(ctx, s, p, token); err != nil {
		return "", err
	}
	return s.code, nil
}

// reconnect binds token to p. The caller holds s.mu.
func (m *Manager) reconnect(ctx context.Context, s *Session, p *models.Player, token uuid.UUID) error {
	prev := s.game.Clone()
	oldToken := p.Token
	p.Token = token
	p.IsDisconnected = false
	s.game.Log(fmt.Sprintf("%s is back.", p.Name))

	evType := EventGameStateUpdate
	if s.game.Status == models.StatusLobby {
		evType = EventLobbyUpdate
	}
	if err := m.commit(ctx, s, prev, p.ID, "reconnect", nil, evType); err != nil {
		m.sendError(token, err)
		return err
	}
	if oldToken != uuid.Nil && oldToken != token && m.send != nil {
		m.send(oldToken, GameEvent{Type: EventError, GameCode: s.code, Message: "This seat was taken over by another connection."})
	}
	if m.send != nil {
		if seat := s.game.PlayerByID(p.ID); seat != nil {
			view := BuildView(s.game, seat.ID)
			m.send(token, GameEvent{Type: EventReconnectSuccess, GameCode: s.code, State: &view})
			m.issueSession(s, seat)
		}
	}
	return nil
}

// issueSession sends p a resume token for its seat.
func (m *Manager) issueSession(s *Session, p *models.Player) {
	if m.issuer == nil || m.send == nil || p == nil {
		return
	}
	tok, err := m.issuer.Issue(s.code, p.ID)
	if err != nil {
		s.log().WithError(err).Warn("failed to issue session token")
		return
	}
	m.send(p.Token, GameEvent{Type: EventSession, GameCode: s.code, SessionToken: tok})
}

// StartGame moves a lobby into play. Only the host may start, with at
// least two players seated.
func (m *Manager) StartGame(ctx context.Context, token uuid.UUID, code string) error {
	s, err := m.session(ctx, code)
	if err != nil {
		m.sendError(token, err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		m.sendError(token, ErrGameNotFound)
		return ErrGameNotFound
	}
	g := s.game
	p := s.playerByToken(token)
	switch {
	case p == nil:
		err = ErrNotInGame
	case p.ID != g.HostID:
		err = ErrNotHost
	case g.Status != models.StatusLobby:
		err = ErrGameStarted
	case len(g.Players) < models.MinPlayers:
		err = fmt.Errorf("%w: at least %d players are needed", ErrInvalidAction, models.MinPlayers)
	}
	if err != nil {
		m.sendError(token, err)
		return err
	}

	prev := g.Clone()
	g.TileMachine = NewMachine(s.rng)
	g.CurrentPlayerIndex = 0
	g.Winner = nil
	g.Log("The game begins!")
	s.startTurn()
	if err := m.commit(ctx, s, prev, p.ID, "startGame", map[string]interface{}{"players": len(g.Players)}, EventGameStarted); err != nil {
		m.sendError(token, err)
		return err
	}
	s.log().WithField("players", len(s.game.Players)).Info("game started")
	return nil
}

// LeaveGame removes the connection's seat. A host leaving the lobby closes it.
func (m *Manager) LeaveGame(ctx context.Context, token uuid.UUID, code string) error {
	s, err := m.session(ctx, code)
	if err != nil {
		m.sendError(token, err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	g := s.game
	p := s.playerByToken(token)
	if p == nil {
		m.sendError(token, ErrNotInGame)
		return ErrNotInGame
	}

	if g.Status == models.StatusLobby {
		if p.ID == g.HostID {
			return m.closeLobby(ctx, s)
		}
		prev := g.Clone()
		idx := g.IndexOf(p.ID)
		g.Players = append(g.Players[:idx:idx], g.Players[idx+1:]...)
		g.Log(fmt.Sprintf("%s left the lobby.", p.Name))
		return m.commit(ctx, s, prev, p.ID, "leaveGame", nil, EventLobbyUpdate)
	}

	prev := g.Clone()
	s.removePlayer(p.ID, "left")
	return m.commit(ctx, s, prev, p.ID, "leaveGame", nil, EventGameStateUpdate)
}

// closeLobby tells every member the lobby is gone and deletes it.
func (m *Manager) closeLobby(ctx context.Context, s *Session) error {
	if err := m.store.Delete(ctx, s.code); err != nil {
		s.log().WithError(err).Warn("failed to delete closed lobby")
	}
	if m.send != nil {
		for _, p := range s.game.Players {
			if p.Token != uuid.Nil && !p.IsDisconnected {
				m.send(p.Token, GameEvent{Type: EventLobbyClosed, GameCode: s.code, Message: "The host closed the lobby."})
			}
		}
	}
	m.publish(s, s.game.HostID, "closeLobby", nil)
	m.evict(s)
	s.log().Info("lobby closed by host")
	return nil
}

// Disconnect marks the seat bound to token as disconnected. The seat keeps
// its place in the rotation and can be reclaimed by name or session token.
func (m *Manager) Disconnect(ctx context.Context, token uuid.UUID, code string) error {
	s, err := m.session(ctx, code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	p := s.playerByToken(token)
	if p == nil {
		return nil
	}
	prev := s.game.Clone()
	p.Token = uuid.Nil
	p.IsDisconnected = true
	s.game.Log(fmt.Sprintf("%s disconnected.", p.Name))
	evType := EventGameStateUpdate
	if s.game.Status == models.StatusLobby {
		evType = EventLobbyUpdate
	}
	return m.commit(ctx, s, prev, p.ID, "disconnect", nil, evType)
}
