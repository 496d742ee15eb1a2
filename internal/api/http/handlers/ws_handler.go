package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-access-service/internal/auth"
	"github.com/spec-kit/staff-access-service/internal/domain"
	"github.com/spec-kit/staff-access-service/internal/realtime"
	"github.com/spec-kit/staff-access-service/internal/service"
)

// WSHandler upgrades staff connections and binds them into the session
// registry for live access-change delivery.
type WSHandler struct {
	tokens        *auth.TokenManager
	accessService *service.AccessService
	registry      *realtime.Registry
	sessionBuffer int
	logger        *zap.Logger
}

// NewWSHandler constructs handler.
func NewWSHandler(tokens *auth.TokenManager, accessService *service.AccessService, registry *realtime.Registry, sessionBuffer int, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		tokens:        tokens,
		accessService: accessService,
		registry:      registry,
		sessionBuffer: sessionBuffer,
		logger:        logger,
	}
}

// UpgradeGate rejects plain HTTP requests on the websocket route.
func (h *WSHandler) UpgradeGate(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Subscribe returns the websocket handler for GET /ws/sessions. The token is
// passed as a query parameter because browsers cannot set headers on
// websocket handshakes.
func (h *WSHandler) Subscribe() fiber.Handler {
	return websocket.New(h.handle)
}

func (h *WSHandler) handle(conn *websocket.Conn) {
	defer conn.Close() //nolint:errcheck

	claims, err := h.tokens.ParseToken(conn.Query("token"))
	if err != nil || claims.Subject != domain.SubjectTypeStaff {
		_ = conn.WriteJSON(realtime.Envelope{Type: "error", Payload: "staff token required"})
		return
	}
	staffID := claims.SubjectID

	session := realtime.NewSession(staffID, h.sessionBuffer)
	h.registry.Register(session)
	defer h.registry.Unregister(staffID, session.ID)

	h.logger.Info("session subscribed",
		zap.String("staff_id", staffID),
		zap.String("session_id", session.ID))

	// Fresh authoritative snapshot first, so the client converges even if a
	// change landed between token issue and subscribe.
	if capabilities, status, err := h.accessService.EffectiveAccess(context.Background(), staffID); err == nil {
		_ = conn.WriteJSON(realtime.Envelope{
			Type: realtime.EnvelopeAccessSnapshot,
			Payload: fiber.Map{
				"capabilities": capabilities.Names(),
				"status":       string(status),
			},
		})
	}

	// Read loop only detects disconnects; clients do not send payloads.
	go func() {
		defer session.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-session.Done():
			return
		case env := <-session.Events():
			if err := conn.WriteJSON(env); err != nil {
				h.logger.Warn("session write failed",
					zap.String("staff_id", staffID),
					zap.String("session_id", session.ID),
					zap.Error(err))
				return
			}
		}
	}
}
