package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/user/spa-platform/internal/adapter/api/middleware"
	"github.com/user/spa-platform/internal/domain"
	"github.com/user/spa-platform/internal/usecase"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wireEvent is the server->client frame on the real-time channel.
type wireEvent struct {
	Event   string               `json:"event"`
	Booking domain.BookingRecord `json:"booking"`
}

// RealtimeHandler upgrades authenticated requests to a WebSocket session,
// joins the tenant's bus partition, and streams scope-filtered booking
// events until either side disconnects.
type RealtimeHandler struct {
	bus       *usecase.BookingEventBus
	validator domain.CredentialValidator
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// NewRealtimeHandler creates a new RealtimeHandler.
func NewRealtimeHandler(bus *usecase.BookingEventBus, validator domain.CredentialValidator, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		bus:       bus,
		validator: validator,
		logger:    logger.With("component", "realtime_handler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Tenant identity and credentials are checked below; the
			// cross-origin browser story is the token, not the Origin
			// header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the session and runs its pumps.
func (h *RealtimeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.TenantFromContext(r.Context())
	if !ok || !identity.IsTenantScoped() {
		http.Error(w, "tenant not found", http.StatusNotFound)
		return
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}
	claims, err := h.validator.Validate(token)
	if err != nil {
		h.logger.Warn("rejecting realtime connect", "tenant", identity.Slug, "error", err)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	// A credential scoped to another tenant never joins this stream, no
	// matter what the client claims over the socket later.
	if claims.TenantSlug != identity.Slug {
		h.logger.Warn("credential tenant mismatch",
			"request_tenant", identity.Slug, "token_tenant", claims.TenantSlug)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := h.bus.Subscribe(identity.Slug)
	h.logger.Info("realtime session opened",
		"tenant", identity.Slug, "role", claims.Scope.Role, "subscription_id", sub.ID())

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, claims.Scope, done)

	h.bus.Unsubscribe(sub)
	_ = conn.Close()
	h.logger.Info("realtime session closed", "tenant", identity.Slug, "subscription_id", sub.ID())
}

// readPump drains client frames. Clients may emit named events for other
// collaborators, but nothing they send is ever treated as authoritative for
// tenant identity, so the payloads are discarded here.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump streams bus events to the client, filtered by the session's
// visibility scope, until the subscription or the connection ends.
func (h *RealtimeHandler) writePump(conn *websocket.Conn, sub *usecase.BusSubscription, scope domain.VisibilityScope, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-sub.Events():
			if !ok {
				// Evicted by the bus (slow consumer) or bus shutdown.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "resubscribe"),
					time.Now().Add(writeWait))
				return
			}
			if !scope.Allows(event.Booking) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wireEvent{Event: event.Type.WireName(), Booking: event.Booking}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// bearerToken extracts the credential from the Authorization header, or from
// the token query parameter for browser WebSocket clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
