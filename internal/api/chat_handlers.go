package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ardiwinata/nobar/internal/chat"
	"github.com/ardiwinata/nobar/internal/models"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 45 * time.Second
)

type ChatHandler struct {
	svc      *chat.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewChatHandler(svc *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// History returns recent messages for an event, oldest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	messages, err := h.svc.History(r.Context(), eventID, limit)
	if err != nil {
		h.logger.Error("chat history failed", zap.String("event_id", eventID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "history_error", "Could not load chat history")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

type postMessageRequest struct {
	Username  string `json:"username"`
	Body      string `json:"body"`
	ClientRef string `json:"client_ref,omitempty"`
}

// PostMessage persists and broadcasts one message over plain HTTP.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req postMessageRequest
	limited := io.LimitReader(r.Body, maxRequestBodySize)
	if err := json.NewDecoder(limited).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body must be a message object")
		return
	}

	msg, err := h.svc.Send(r.Context(), eventID, req.Username, req.Body, req.ClientRef)
	if err != nil {
		if code, ok := chatErrorCode(err); ok {
			writeJSONError(w, http.StatusBadRequest, code, err.Error())
			return
		}
		h.logger.Error("chat send failed", zap.String("event_id", eventID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "send_error", "Could not send message")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Viewers returns the current presence count for an event.
func (h *ChatHandler) Viewers(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": eventID,
		"viewers":  h.svc.Viewers(eventID),
	})
}

// wsInbound is one client frame. Type is "register" or "message".
type wsInbound struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Body     string `json:"body,omitempty"`
}

// wsOutbound is one server frame. Type is "history", "message", "ack",
// "viewers" or "error".
type wsOutbound struct {
	Type     string               `json:"type"`
	Message  *models.ChatMessage  `json:"message,omitempty"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
	Viewers  int                  `json:"viewers,omitempty"`
	Code     string               `json:"code,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Websocket upgrades the connection and runs one chat session over it. The
// session starts anonymous; the client must send a register frame before its
// message frames are accepted.
func (h *ChatHandler) Websocket(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	title := r.URL.Query().Get("title")

	sess, err := h.svc.OpenSession(r.Context(), eventID, title)
	if err != nil {
		h.logger.Error("opening chat session failed", zap.String("event_id", eventID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "session_error", "Could not open chat session")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sess.Close()
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	outbound := make(chan wsOutbound, 64)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	// Closing the conn when the writer exits unblocks a reader stuck on a
	// peer that keeps sending after its receive side died.
	go func() {
		h.writePump(conn, outbound, done)
		close(writerDone)
		conn.Close()
	}()

	sendFrame(outbound, writerDone, wsOutbound{Type: "history", Messages: sess.Messages()})
	sendFrame(outbound, writerDone, wsOutbound{Type: "viewers", Viewers: h.svc.Viewers(eventID)})

	// Forward hub broadcasts from other viewers.
	go func() {
		for msg := range sess.Updates() {
			if !sess.Apply(msg) {
				continue
			}
			if !sendFrame(outbound, writerDone, wsOutbound{Type: "message", Message: &msg}) {
				return
			}
		}
	}()

	h.readPump(r, conn, sess, outbound, writerDone)

	close(done)
	sess.Close()
	conn.Close()
}

// sendFrame queues a frame for the write pump. It reports false once the
// writer has exited, so read-side senders drop frames instead of wedging on
// a full buffer nobody drains.
func sendFrame(outbound chan<- wsOutbound, writerDone <-chan struct{}, frame wsOutbound) bool {
	select {
	case outbound <- frame:
		return true
	case <-writerDone:
		return false
	}
}

func (h *ChatHandler) readPump(r *http.Request, conn *websocket.Conn, sess *chat.Session, outbound chan<- wsOutbound, writerDone <-chan struct{}) {
	conn.SetReadLimit(maxRequestBodySize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var frame wsInbound
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var reply wsOutbound
		switch frame.Type {
		case "register":
			if err := sess.Register(frame.Username); err != nil {
				reply = wsOutbound{Type: "error", Code: "register_error", Error: err.Error()}
			} else {
				reply = wsOutbound{Type: "viewers", Viewers: h.svc.Viewers(sess.EventID())}
			}
		case "message":
			msg, err := sess.Send(r.Context(), frame.Body)
			if err != nil {
				code := "send_error"
				if c, ok := chatErrorCode(err); ok {
					code = c
				}
				reply = wsOutbound{Type: "error", Code: code, Error: err.Error()}
			} else {
				reply = wsOutbound{Type: "ack", Message: msg}
			}
		default:
			reply = wsOutbound{Type: "error", Code: "unknown_frame", Error: "Unknown frame type"}
		}

		if !sendFrame(outbound, writerDone, reply) {
			return
		}
	}
}

func (h *ChatHandler) writePump(conn *websocket.Conn, outbound <-chan wsOutbound, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-outbound:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func chatErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, chat.ErrEmptyUsername):
		return "empty_username", true
	case errors.Is(err, chat.ErrUsernameTooLong):
		return "username_too_long", true
	case errors.Is(err, chat.ErrEmptyBody):
		return "empty_message", true
	case errors.Is(err, chat.ErrMessageTooLong):
		return "message_too_long", true
	case errors.Is(err, chat.ErrNotRegistered):
		return "not_registered", true
	case errors.Is(err, chat.ErrSessionClosed):
		return "session_closed", true
	default:
		return "", false
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
