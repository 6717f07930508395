package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/mickarin/internal/cache"
	"github.com/jason-s-yu/mickarin/internal/models"
	"github.com/sirupsen/logrus"
)

// systemActor is the actor id recorded for server-initiated transitions.
const systemActor = -1

// SendFunc delivers an event to the connection identified by token. It must
// not block; the engine calls it while holding a game lock.
type SendFunc func(token uuid.UUID, ev GameEvent)

// ActionPublisher receives a record of every accepted action.
type ActionPublisher interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// SessionIssuer mints and checks resume tokens binding a client to a seat.
type SessionIssuer interface {
	Issue(code string, playerID int) (string, error)
	Verify(token string) (code string, playerID int, err error)
}

// Manager routes actions to per-code sessions. The sessions map has its own
// lock, which is never held while a game is being mutated.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store   Store
	send    SendFunc
	logger  *logrus.Logger
	rules   Rules
	actions ActionPublisher
	issuer  SessionIssuer

	// dice and coin replace the random sources when set.
	dice func() int
	coin func() bool
}

// Option configures a Manager.
type Option func(*Manager)

func WithRules(r Rules) Option {
	return func(m *Manager) { m.rules = r }
}

func WithActionPublisher(p ActionPublisher) Option {
	return func(m *Manager) { m.actions = p }
}

func WithSessionIssuer(i SessionIssuer) Option {
	return func(m *Manager) { m.issuer = i }
}

// NewManager creates a manager persisting to store and delivering events through send.
func NewManager(store Store, send SendFunc, logger *logrus.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		send:     send,
		logger:   logger,
		rules:    DefaultRules(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// session returns the resident session for code, loading it from the store
// on first access.
func (m *Manager) session(ctx context.Context, code string) (*Session, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrGameNotFound
	}
	m.mu.Lock()
	s, ok := m.sessions[code]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	g, err := m.store.Load(ctx, code)
	if errors.Is(err, ErrGameNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[code]; ok {
		return s, nil
	}
	s = newSession(m, g)
	s.restore()
	m.sessions[code] = s
	m.logger.WithField("game", code).Info("game loaded from store")
	return s, nil
}

// restore prepares a document loaded from the store. No connection survives
// a reload, so every seat starts disconnected.
func (s *Session) restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.game.Players {
		p.Token = uuid.Nil
		p.IsDisconnected = true
	}
	if s.game.TurnState == models.TurnRevealing && s.game.PendingAward != nil {
		s.scheduleReveal(s.mgr.rules.RevealDelay)
	}
	s.syncTimer(true)
}

// evict drops s from the resident set. The caller holds s.mu.
func (m *Manager) evict(s *Session) {
	s.stopAll()
	s.closed = true
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.code] == s {
		delete(m.sessions, s.code)
	}
}

// Exists reports whether a game with code is resident or stored.
func (m *Manager) Exists(ctx context.Context, code string) (bool, error) {
	code = normalizeCode(code)
	if code == "" {
		return false, nil
	}
	m.mu.Lock()
	_, ok := m.sessions[code]
	m.mu.Unlock()
	if ok {
		return true, nil
	}

	// A store lookup does not load the game into memory or arm its timers.
	_, err := m.store.Load(ctx, code)
	if errors.Is(err, ErrGameNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return true, nil
}

// Snapshot returns a deep copy of the game document, for inspection.
func (m *Manager) Snapshot(ctx context.Context, code string) (*models.Game, error) {
	s, err := m.session(ctx, code)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Clone(), nil
}

// Shutdown stops every timer. Games stay in the store.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.mu.Lock()
		s.stopAll()
		s.mu.Unlock()
	}
}

func (m *Manager) sendError(token uuid.UUID, err error) {
	if m.send == nil || token == uuid.Nil {
		return
	}
	m.send(token, GameEvent{Type: EventError, Message: userMessage(err)})
}

// broadcast sends every connected member its own view of the game.
func (m *Manager) broadcast(s *Session, evType EventType) {
	if m.send == nil {
		return
	}
	for _, p := range s.game.Players {
		if p.IsDisconnected || p.Token == uuid.Nil {
			continue
		}
		view := BuildView(s.game, p.ID)
		m.send(p.Token, GameEvent{Type: evType, GameCode: s.code, State: &view})
	}
}

// publish hands the action record to the action log without blocking.
func (m *Manager) publish(s *Session, actorID int, action string, payload map[string]interface{}) {
	if m.actions == nil {
		return
	}
	rec := cache.GameActionRecord{
		GameCode:      s.code,
		ActionIndex:   s.game.ActionIndex,
		ActorID:       actorID,
		ActionType:    action,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.actions.PublishGameAction(ctx, rec); err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"game":   rec.GameCode,
				"action": rec.ActionType,
			}).Warn("failed to publish game action")
		}
	}()
}

// commit persists the mutated game, then publishes and broadcasts it. On a
// failed save the in-memory game is rolled back to prev.
func (m *Manager) commit(ctx context.Context, s *Session, prev *models.Game, actorID int, action string, payload map[string]interface{}, evType EventType) error {
	g := s.game
	g.ActionIndex++
	s.syncTimer(false)
	if err := m.store.Save(ctx, s.code, g); err != nil {
		s.log().WithError(err).WithField("action", action).Error("failed to save game, rolling back")
		s.game = prev
		s.stopReveal()
		if prev.TurnState == models.TurnRevealing && prev.PendingAward != nil {
			s.scheduleReveal(m.rules.RevealDelay)
		}
		s.syncTimer(true)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	s.log().WithFields(logrus.Fields{
		"action": action,
		"actor":  actorID,
		"index":  g.ActionIndex,
		"status": g.Status,
	}).Debug("action applied")
	m.publish(s, actorID, action, payload)
	m.broadcast(s, evType)
	if g.Status == models.StatusFinished {
		m.evict(s)
	}
	return nil
}

// act runs fn for the player bound to token under the game lock. A rejected
// action leaves the game untouched and is reported to the actor only.
func (m *Manager) act(ctx context.Context, token uuid.UUID, code, action string, payload map[string]interface{}, fn func(*Session, *models.Player) error) error {
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
	p := s.playerByToken(token)
	if p == nil {
		m.sendError(token, ErrNotInGame)
		return ErrNotInGame
	}

	prev := s.game.Clone()
	if err := fn(s, p); err != nil {
		s.game = prev
		if actor, ok := s.actingPlayerID(); ok && actor == p.ID && isValidationError(err) {
			s.syncTimer(true)
		}
		s.log().WithError(err).WithFields(logrus.Fields{
			"action": action,
			"player": p.ID,
		}).Debug("action rejected")
		m.sendError(token, err)
		return err
	}
	if err := m.commit(ctx, s, prev, p.ID, action, payload, EventGameStateUpdate); err != nil {
		m.sendError(token, err)
		return err
	}
	return nil
}

// handleTimeout removes the player who let the turn timer expire.
func (m *Manager) handleTimeout(s *Session, seq uint64, actorID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.timerSeq {
		s.log().WithField("player", actorID).Debug("stale turn timer fired, ignoring")
		return
	}
	s.timer = nil
	if cur, ok := s.actingPlayerID(); !ok || cur != actorID {
		s.log().WithField("player", actorID).Debug("timer fired for a player who no longer acts, ignoring")
		return
	}
	p := s.game.PlayerByID(actorID)
	if p == nil {
		return
	}
	s.log().WithField("player", actorID).Info("player timed out")

	prev := s.game.Clone()
	token := p.Token
	s.removePlayer(actorID, "timed out")
	if err := m.commit(context.Background(), s, prev, systemActor, "timeout", map[string]interface{}{"playerId": actorID}, EventGameStateUpdate); err != nil {
		return
	}
	if m.send != nil && token != uuid.Nil {
		m.send(token, GameEvent{Type: EventError, GameCode: s.code, Message: "You were removed from the game for inactivity."})
	}
}

// finishReveal completes a deferred award once the reveal delay elapsed.
func (m *Manager) finishReveal(s *Session, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.revealSeq || s.game.TurnState != models.TurnRevealing {
		return
	}
	s.revealTimer = nil
	prev := s.game.Clone()
	s.completeReveal()
	_ = m.commit(context.Background(), s, prev, systemActor, "revealTiles", nil, EventGameStateUpdate)
}

// RollDice rolls for the turn holder.
func (m *Manager) RollDice(ctx context.Context, token uuid.UUID, code string) error {
	return m.act(ctx, token, code, "rollDice", nil, func(s *Session, p *models.Player) error {
		return s.rollDice(p)
	})
}

// StealTile takes the tile at tileIndex from victimID during a steal phase.
func (m *Manager) StealTile(ctx context.Context, token uuid.UUID, code string, victimID, tileIndex int) error {
	payload := map[string]interface{}{"victimId": victimID, "tileIndex": tileIndex}
	return m.act(ctx, token, code, "stealTile", payload, func(s *Session, p *models.Player) error {
		return s.stealTile(p, victimID, tileIndex)
	})
}

// TakeTiles accepts the machine offer.
func (m *Manager) TakeTiles(ctx context.Context, token uuid.UUID, code string) error {
	return m.act(ctx, token, code, "takeTiles", nil, func(s *Session, p *models.Player) error {
		return s.takeTiles(p)
	})
}

// RelaunchMachine draws another tile into the offer.
func (m *Manager) RelaunchMachine(ctx context.Context, token uuid.UUID, code string) error {
	return m.act(ctx, token, code, "relaunchMachine", nil, func(s *Session, p *models.Player) error {
		return s.relaunchMachine(p)
	})
}

// PlaceBid bids amount in the running auction.
func (m *Manager) PlaceBid(ctx context.Context, token uuid.UUID, code string, amount int) error {
	payload := map[string]interface{}{"amount": amount}
	return m.act(ctx, token, code, "placeBid", payload, func(s *Session, p *models.Player) error {
		return s.placeBid(p, amount)
	})
}

// PassBid passes in the running auction.
func (m *Manager) PassBid(ctx context.Context, token uuid.UUID, code string) error {
	return m.act(ctx, token, code, "passBid", nil, func(s *Session, p *models.Player) error {
		return s.passBid(p)
	})
}

// SellTiles sells tiles back to the bank.
func (m *Manager) SellTiles(ctx context.Context, token uuid.UUID, code string, tiles []models.Tile) error {
	keys := make([]string, 0, len(tiles))
	for _, t := range tiles {
		keys = append(keys, t.Key())
	}
	payload := map[string]interface{}{"tiles": keys}
	return m.act(ctx, token, code, "sellTiles", payload, func(s *Session, p *models.Player) error {
		return s.sellTiles(p, tiles)
	})
}
