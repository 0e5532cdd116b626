package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nfl-pickem-live/interfaces"
	"nfl-pickem-live/services"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsReadLimit      = 4096
	sseRetryInterval = 3000
)

// LiveHandler streams redacted pick and score changes over SSE and websocket
type LiveHandler struct {
	responder
	stream        interfaces.LiveStream
	currentSeason int
	upgrader      websocket.Upgrader
}

// NewLiveHandler builds the handler. allowedOrigins gates websocket upgrades; "*" allows any.
func NewLiveHandler(stream interfaces.LiveStream, currentSeason int, allowedOrigins []string, diagnostic bool) *LiveHandler {
	return &LiveHandler{
		responder:     newResponder("LiveHandler", diagnostic),
		stream:        stream,
		currentSeason: currentSeason,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// subscription parses ?season=&week= and the resume token
func (h *LiveHandler) subscription(r *http.Request) (*services.Subscription, error) {
	season, err := queryInt(r, "season", h.currentSeason)
	if err != nil {
		return nil, err
	}
	week, err := queryInt(r, "week", 0)
	if err != nil {
		return nil, err
	}

	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	var lastEventID uint64
	if raw != "" {
		// an unreadable token is treated as a fresh connection
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			lastEventID = v
		}
	}

	return h.stream.Subscribe(viewerID(r), services.StreamFilter{Season: season, Week: week}, lastEventID), nil
}

// Stream handles GET /live/stream (server-sent events)
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "streaming unsupported"})
		return
	}
	sub, err := h.subscription(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer sub.Close()

	heartbeat := h.stream.NewHeartbeat()
	defer heartbeat.Stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", sseRetryInterval)
	flusher.Flush()

	viewer := viewerID(r)
	h.logger.Infof("SSE client connected from %s (viewer %d)", r.RemoteAddr, viewer)
	defer h.logger.Infof("SSE client disconnected (viewer %d)", viewer)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Wake():
			for _, msg := range sub.Drain(ctx) {
				if err := writeSSE(w, msg); err != nil {
					h.logger.Debugf("SSE write failed (viewer %d): %v", viewer, err)
					return
				}
			}
			flusher.Flush()
		case <-heartbeat.Chan():
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, msg services.Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return err
	}
	if msg.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", msg.ID); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)
	return err
}

// WebSocket handles GET /live/ws. Frames are JSON Messages; the resume token comes from
// ?last_event_id since browsers cannot set headers on the upgrade.
func (h *LiveHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subscription(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	heartbeat := h.stream.NewHeartbeat()
	defer heartbeat.Stop()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readPump(conn, cancel)

	viewer := viewerID(r)
	h.logger.Infof("Websocket client connected from %s (viewer %d)", r.RemoteAddr, viewer)
	defer h.logger.Infof("Websocket client disconnected (viewer %d)", viewer)

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case <-sub.Wake():
			for _, msg := range sub.Drain(ctx) {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Debugf("Websocket write failed (viewer %d): %v", viewer, err)
					return
				}
			}
		case <-heartbeat.Chan():
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control frames are processed, and cancels on close
func (h *LiveHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debugf("Unexpected websocket close: %v", err)
			}
			return
		}
	}
}
