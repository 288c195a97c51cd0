package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/user/spa-platform/internal/domain"
	"github.com/user/spa-platform/internal/usecase"
)

// WebsocketTransport implements usecase.Transport over the /realtime
// WebSocket endpoint. The URL pattern carries one %s for the tenant slug,
// e.g. "wss://%s.platform.com/realtime".
type WebsocketTransport struct {
	urlPattern string
	dialer     *websocket.Dialer
	logger     *slog.Logger
}

// NewWebsocketTransport creates a transport dialing the given URL pattern.
func NewWebsocketTransport(urlPattern string, logger *slog.Logger) *WebsocketTransport {
	return &WebsocketTransport{
		urlPattern: urlPattern,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "ws_transport"),
	}
}

// Connect dials the tenant's event stream, presenting the bearer credential
// at handshake time.
func (t *WebsocketTransport) Connect(ctx context.Context, tenantSlug, token string) (usecase.EventConn, error) {
	url := t.urlPattern
	if strings.Contains(url, "%s") {
		url = fmt.Sprintf(t.urlPattern, tenantSlug)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := t.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %v (status %d)", domain.ErrTransportUnavailable, url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrTransportUnavailable, url, err)
	}
	return &wsConn{conn: conn}, nil
}

// wireEvent mirrors the server->client frame shape.
type wireEvent struct {
	Event   string               `json:"event"`
	Booking domain.BookingRecord `json:"booking"`
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadEvent() (domain.BookingEvent, error) {
	for {
		var frame wireEvent
		if err := c.conn.ReadJSON(&frame); err != nil {
			return domain.BookingEvent{}, fmt.Errorf("%w: read: %v", domain.ErrTransportUnavailable, err)
		}
		eventType, ok := domain.ParseEventName(frame.Event)
		if !ok {
			// Unknown named events belong to other collaborators.
			continue
		}
		return domain.BookingEvent{
			Type:       eventType,
			TenantSlug: frame.Booking.TenantSlug,
			Booking:    frame.Booking,
		}, nil
	}
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
