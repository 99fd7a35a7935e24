package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/feed"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers authenticate with the bearer token checked before the upgrade.
	CheckOrigin: func(*http.Request) bool { return true },
}

// CustomerFeedRoutes mounts the customer's live order updates.
func (h *Handler) CustomerFeedRoutes(r chi.Router) {
	r.Get("/orders/feed", h.CustomerFeed)
}

// AdminFeedRoutes mounts the store admin's live order updates.
func (h *Handler) AdminFeedRoutes(r chi.Router) {
	r.Get("/orders/feed", h.StoreFeed)
}

// CustomerFeed implements GET /orders/feed (websocket)
func (h *Handler) CustomerFeed(w http.ResponseWriter, r *http.Request) {
	profile, ok := requireProfile(w, r)
	if !ok {
		return
	}
	h.serveFeed(w, r, feed.CustomerTopic(profile.ID))
}

// StoreFeed implements GET /admin/orders/feed (websocket)
func (h *Handler) StoreFeed(w http.ResponseWriter, r *http.Request) {
	space, ok := requireSpace(w, r)
	if !ok {
		return
	}
	h.serveFeed(w, r, feed.TenantTopic(space.TenantID))
}

// serveFeed streams events until the client goes away. The subscription is always released
// when the socket closes.
func (h *Handler) serveFeed(w http.ResponseWriter, r *http.Request, topic string) {
	logger := platformlogging.FromRequest(r, h.logger).With(zap.String("topic", topic))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, err := h.broker.Subscribe(ctx, topic)
	if err != nil {
		logger.Error("subscribe to order feed", zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "feed unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer unsubscribe()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("order feed write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
