package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/core"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// WebSocket timing for field subscriptions.
const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	wsPongWait = 60 * time.Second

	// Send pings to the peer with this period. Must be less than wsPongWait.
	wsPingPeriod = (wsPongWait * 9) / 10

	// Clients only send control frames, so reads are kept tiny.
	wsMaxMessageSize = 512
)

// TripHandler exposes the field-level read, write and subscribe operations.
type TripHandler struct {
	sync     core.TripSyncService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewTripHandler creates a new TripHandler. allowedOrigins limits which pages may open
// field subscriptions; empty allows any origin.
func NewTripHandler(sync core.TripSyncService, allowedOrigins []string, logger *zap.Logger) *TripHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &TripHandler{
		sync:   sync,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Non-browser clients send no Origin header and are always allowed.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// fieldParam parses the :field path parameter and answers 404 for unknown fields.
func fieldParam(c *gin.Context) (models.Field, bool) {
	field, ok := models.ParseField(c.Param("field"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrInvalidField.Error(), Details: c.Param("field")})
		return "", false
	}
	return field, true
}

// EnsureIdentity handles POST /identity
func (h *TripHandler) EnsureIdentity(c *gin.Context) {
	id, err := h.sync.EnsureIdentityReady(c.Request.Context())
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, IdentityResponse{UID: id.UID, Anonymous: id.Anonymous})
}

// GetField handles GET /trip/fields/:field
func (h *TripHandler) GetField(c *gin.Context) {
	field, ok := fieldParam(c)
	if !ok {
		return
	}
	fv, err := h.sync.GetField(c.Request.Context(), field)
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, FieldResponse{Field: fv.Field.String(), Value: fv.Value, Exists: fv.Exists})
}

// UpdateField handles PUT /trip/fields/:field
func (h *TripHandler) UpdateField(c *gin.Context) {
	field, ok := fieldParam(c)
	if !ok {
		return
	}
	var req models.UpdateFieldRequest
	// The value is decoded and validated against the field's type by the sync service.
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if err := h.sync.UpdateField(c.Request.Context(), field, req.Value); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Field updated"})
}

// SubscribeField handles GET /trip/fields/:field/ws. Every remote change of the field is
// pushed to the socket as a FieldResponse. The first message is the current value.
func (h *TripHandler) SubscribeField(c *gin.Context) {
	field, ok := fieldParam(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The subscription lives as long as the request context, which gin cancels when
	// the connection is closed.
	sub, err := h.sync.SubscribeField(c.Request.Context(), field)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()), time.Now().Add(wsWriteWait))
		return
	}
	defer sub.Cancel()

	// The reader only drains control frames and notices when the client goes away.
	clientGone := make(chan struct{})
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-clientGone:
			return
		case fv, open := <-sub.Values():
			if !open {
				// Cancelled or failed upstream; tell the client which one before closing.
				code, reason := websocket.CloseNormalClosure, ""
				if err := sub.Err(); err != nil {
					code, reason = websocket.CloseInternalServerErr, "subscription ended"
				}
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(FieldResponse{Field: fv.Field.String(), Value: fv.Value, Exists: fv.Exists}); err != nil {
				h.logger.Debug("WebSocket write failed", zap.String("field", field.String()), zap.Error(err))
				return
			}
		case <-ping.C:
			// Keepalive; a failed ping means the peer is gone.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
