package web

import (
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/logging"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
)

// feedMessage is one frame of the submission feed.
type feedMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// upgrader accepts same-host origins and the configured allow-list.
func (s *Server) upgrader() websocket.Upgrader {
	allowed := s.opts.Security.AllowedOrigins
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowed, origin) {
				return true
			}
			if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
				return true
			}
			logging.FromContext(r.Context()).Warn("websocket connection rejected", "origin", origin)
			return false
		},
	}
}

// handleSubmissionFeed streams new submissions of a directory to its owner.
// Session and access checks run before the upgrade so failures still get
// the JSON envelope.
func (s *Server) handleSubmissionFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	events, cancel, err := s.service.SubscribeSubmissions(ctx, auth.UserID(ctx), slug)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cancel()

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.FromContext(ctx).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.metrics.feeds.Inc()
	defer s.metrics.feeds.Dec()

	logger := logging.FromContext(ctx).With("directory", slug)
	logger.Info("submission feed opened")
	defer logger.Info("submission feed closed")

	// Reader: handles pongs and notices the client going away.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	if err := writeFrame(conn, feedMessage{Type: "connected", Data: map[string]string{"directory": slug}}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(feedWriteWait))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeFrame(conn, feedMessage{Type: "submission", Data: ev}); err != nil {
				logger.Debug("submission feed write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, msg feedMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return conn.WriteJSON(msg)
}
