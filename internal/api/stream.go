package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"locbridge/pkg/locator"
	"locbridge/pkg/logging"
	"locbridge/pkg/model"
)

// ErrTooManyStreams is returned when the stream limit is reached.
var ErrTooManyStreams = errors.New("too many position streams")

const (
	streamSendBuffer = 64
	streamWriteWait  = 5 * time.Second
)

// Stream message types.
const (
	MsgStarted  = "started"
	MsgPosition = "position"
	MsgError    = "error"
)

// StreamMessage is one websocket frame.
type StreamMessage struct {
	Type     string          `json:"type"`
	WatchID  string          `json:"watchId,omitempty"`
	Position *model.Position `json:"position,omitempty"`
	Error    *model.Failure  `json:"error,omitempty"`
}

// StreamHandler pushes watch updates over a websocket. Each connection owns
// one watch, cleared when the client disconnects.
type StreamHandler struct {
	loc        *locator.Locator
	maxStreams int32
	active     atomic.Int32
	upgrader   websocket.Upgrader
}

// NewStreamHandler creates a StreamHandler. maxStreams <= 0 means unlimited.
func NewStreamHandler(loc *locator.Locator, maxStreams int) *StreamHandler {
	return &StreamHandler{
		loc:        loc,
		maxStreams: int32(maxStreams),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Active returns the number of open streams.
func (h *StreamHandler) Active() int {
	return int(h.active.Load())
}

func (h *StreamHandler) acquire() bool {
	for {
		n := h.active.Load()
		if h.maxStreams > 0 && n >= h.maxStreams {
			return false
		}
		if h.active.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// HandleStream upgrades the connection and starts a watch with the query options.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ro, err := parseQueryOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.acquire() {
		writeError(w, http.StatusServiceUnavailable, ErrTooManyStreams.Error())
		return
	}
	defer h.active.Add(-1)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &streamClient{
		conn: conn,
		send: make(chan []byte, streamSendBuffer),
		done: make(chan struct{}),
	}

	id, err := h.loc.Watch(
		func(p model.Position) { c.push(StreamMessage{Type: MsgPosition, Position: &p}) },
		func(f model.Failure) { c.push(StreamMessage{Type: MsgError, Error: &f}) },
		ro.Apply()...,
	)
	if err != nil {
		var f *model.Failure
		if !errors.As(err, &f) {
			f = &model.Failure{Code: model.PositionUnavailable, Message: err.Error()}
		}
		c.writeNow(StreamMessage{Type: MsgError, Error: f})
		return
	}
	defer h.loc.ClearWatch(id)

	slog.Info("Position stream connected", "remote", r.RemoteAddr, "id", id)
	c.push(StreamMessage{Type: MsgStarted, WatchID: id})

	go c.writePump()

	// Read until the client goes away; incoming frames are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	c.stop()
	slog.Info("Position stream disconnected", "remote", r.RemoteAddr, "id", id)
}

type streamClient struct {
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func (c *streamClient) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// push queues a message. A client that cannot keep up is disconnected.
func (c *streamClient) push(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Stream marshal error", "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		logging.TraceDefault("Stream client too slow, disconnecting")
		c.stop()
		_ = c.conn.Close()
	}
}

func (c *streamClient) writePump() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.stop()
				_ = c.conn.Close()
				return
			}
		}
	}
}

// writeNow writes synchronously; only used before the write pump starts.
func (c *streamClient) writeNow(msg StreamMessage) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		slog.Warn("Stream write failed", "error", err)
	}
}
