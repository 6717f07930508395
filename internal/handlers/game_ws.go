// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/mickarin/internal/game"
	"github.com/jason-s-yu/mickarin/internal/middleware"
	"github.com/jason-s-yu/mickarin/internal/models"
	"github.com/sirupsen/logrus"
)

// ClientMessage is every inbound frame. Only the fields its Type needs are
// read. GameCode may be omitted once the connection is seated in a game.
type ClientMessage struct {
	Type         string        `json:"type"`
	GameCode     string        `json:"gameCode,omitempty"`
	Name         string        `json:"name,omitempty"`
	YearOfBirth  int           `json:"yearOfBirth,omitempty"`
	SessionToken string        `json:"sessionToken,omitempty"`
	VictimID     int           `json:"victimId,omitempty"`
	TileIndex    int           `json:"tileIndex,omitempty"`
	Amount       int           `json:"amount,omitempty"`
	Tiles        []models.Tile `json:"tiles,omitempty"`
}

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// conn is the per-connection state owned by the read loop.
type conn struct {
	*client
	code string // game the connection is seated in, "" if none
}

// GameWSHandler upgrades the request to a websocket speaking the mickarin
// subprotocol and feeds its messages to the engine until the client leaves.
func (s *Server) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.WithError(err).Warn("websocket accept error")
		return
	}
	defer ws.Close(websocket.StatusInternalError, "handler finished")

	if ws.Subprotocol() != Subprotocol {
		ws.Close(BadSubprotocolError, "client must speak the mickarin subprotocol")
		return
	}

	c := &conn{client: s.hub.register()}
	log := s.logger.WithFields(logrus.Fields{"conn": c.id, "remote": r.RemoteAddr})
	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(ctx, ws, c.client, log)
	}()

	readErr := s.readPump(ctx, ws, c, log)

	s.hub.unregister(c.client)
	if c.code != "" {
		if err := s.mgr.Disconnect(context.Background(), c.id, c.code); err != nil && !errors.Is(err, game.ErrGameNotFound) {
			log.WithError(err).WithField("game", c.code).Warn("failed to mark player disconnected")
		}
	}
	cancel()
	<-writerDone
	middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, readErr)

	if s.ctx.Err() != nil {
		ws.Close(ServerShutdownError, "server shutting down")
		return
	}
	ws.Close(websocket.StatusNormalClosure, "")
}

// readPump decodes frames until the connection fails or ctx ends. It returns
// nil on a normal closure.
func (s *Server) readPump(ctx context.Context, ws *websocket.Conn, c *conn, log *logrus.Entry) error {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.hub.Send(c.id, game.GameEvent{Type: game.EventError, Message: "Invalid JSON format"})
			continue
		}
		s.dispatch(ctx, c, msg, log)
	}
}

// dispatch routes one message to the engine. Engine failures have already
// been reported to the client as private error events.
func (s *Server) dispatch(ctx context.Context, c *conn, msg ClientMessage, log *logrus.Entry) {
	code := strings.ToUpper(strings.TrimSpace(msg.GameCode))
	if code == "" {
		code = c.code
	}

	var err error
	switch msg.Type {
	case "ping":
		s.hub.Send(c.id, game.GameEvent{Type: game.EventPong})
		return
	case "createGame":
		var created string
		if created, err = s.mgr.CreateGame(ctx, c.id, msg.Name, msg.YearOfBirth); err == nil {
			s.seat(c, created)
		}
	case "joinGame":
		if err = s.mgr.JoinGame(ctx, c.id, code, msg.Name, msg.YearOfBirth); err == nil {
			s.seat(c, code)
		}
	case "resumeGame":
		var resumed string
		if resumed, err = s.mgr.ResumeGame(ctx, c.id, msg.SessionToken); err == nil {
			s.seat(c, resumed)
		}
	case "startGame":
		err = s.mgr.StartGame(ctx, c.id, code)
	case "rollDice":
		err = s.mgr.RollDice(ctx, c.id, code)
	case "stealTile":
		err = s.mgr.StealTile(ctx, c.id, code, msg.VictimID, msg.TileIndex)
	case "takeTiles":
		err = s.mgr.TakeTiles(ctx, c.id, code)
	case "relaunchMachine":
		err = s.mgr.RelaunchMachine(ctx, c.id, code)
	case "sellTiles":
		err = s.mgr.SellTiles(ctx, c.id, code, msg.Tiles)
	case "placeBid":
		err = s.mgr.PlaceBid(ctx, c.id, code, msg.Amount)
	case "passBid":
		err = s.mgr.PassBid(ctx, c.id, code)
	case "leaveGame":
		if err = s.mgr.LeaveGame(ctx, c.id, code); err == nil && code == c.code {
			c.code = ""
		}
	default:
		s.hub.Send(c.id, game.GameEvent{Type: game.EventError, Message: "Unknown message type: " + msg.Type})
		return
	}
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{"game": code, "type": msg.Type}).Debug("action rejected")
	}
}

// seat binds the connection to code, releasing any previous seat.
func (s *Server) seat(c *conn, code string) {
	if c.code != "" && c.code != code {
		if err := s.mgr.Disconnect(context.Background(), c.id, c.code); err != nil && !errors.Is(err, game.ErrGameNotFound) {
			s.logger.WithError(err).WithField("game", c.code).Warn("failed to release previous seat")
		}
	}
	c.code = code
}

// writePump forwards queued events to the socket and keeps it alive with
// periodic pings. It returns when the outbox is closed or ctx ends.
func writePump(ctx context.Context, ws *websocket.Conn, c *client, log *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.out:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, ws, ev)
			cancel()
			if err != nil {
				log.WithError(err).Warn("failed to write to websocket")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
