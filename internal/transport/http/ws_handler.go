package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/security"
)

// WSHandler is the realtime gateway: it maps inbound events to game
// operations and reports failures to the originating connection only.
type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	tokens   *security.HostTokens
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub, tokens *security.HostTokens, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		hub:     hub,
		tokens:  tokens,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
// Leaving is keyed off the participant id, so a dropped host cancels its game.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), conn)
	h.hub.Register(client)
	go client.writeLoop()

	client.readLoop(h.logger, func(msg inboundMessage) {
		if err := h.dispatch(client, msg); err != nil {
			h.replyError(client, msg.Type, err)
		}
	})

	if client.pin != "" {
		h.service.Leave(client.pin, client.ID)
	}
	h.hub.Unregister(client)
}

func (h *WSHandler) dispatch(c *Client, msg inboundMessage) error {
	switch msg.Type {
	case eventHostJoin:
		var p hostJoinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		if h.tokens != nil && h.tokens.Enabled() {
			session, err := h.service.Lookup(p.PIN)
			if err != nil {
				return err
			}
			if err := h.tokens.Verify(p.HostToken, p.PIN, session.GameID()); err != nil {
				return err
			}
		}
		if _, err := h.service.HostJoin(p.PIN, c.ID); err != nil {
			return err
		}
		h.bind(c, p.PIN)
		return nil

	case eventPlayerJoin:
		var p playerJoinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		if _, err := h.service.PlayerJoin(p.PIN, c.ID, p.Nickname); err != nil {
			return err
		}
		h.bind(c, p.PIN)
		return nil

	case eventHostStart:
		var p pinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return h.service.Start(c.target(p.PIN), c.ID)

	case eventPlayerAnswer:
		var p answerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		_, err := h.service.SubmitAnswer(c.target(p.PIN), c.ID, p.submission())
		return err

	case eventShowResults:
		var p pinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return h.service.Reveal(c.target(p.PIN), c.ID)

	case eventNextQuestion:
		var p pinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return h.service.NextQuestion(c.target(p.PIN), c.ID)

	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedEvent, msg.Type)
	}
}

// bind records the game a connection joined, leaving the previous one if it
// differs.
func (h *WSHandler) bind(c *Client, pin string) {
	if c.pin != "" && c.pin != pin {
		h.service.Leave(c.pin, c.ID)
	}
	c.pin = pin
}

// target prefers the pin named by the event and falls back to the joined one.
func (c *Client) target(pin string) string {
	if pin != "" {
		return pin
	}
	return c.pin
}

func (h *WSHandler) replyError(c *Client, event string, err error) {
	fields := []zap.Field{zap.String("client_id", c.ID), zap.String("event", event), zap.Error(err)}
	if domain.KindOf(err) == domain.KindInternal {
		h.logger.Error("ws event failed", fields...)
	} else {
		h.logger.Debug("ws event rejected", fields...)
	}
	h.hub.Reply(c, errorMessage(err))
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}
