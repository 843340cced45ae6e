// Package webchat serves the WebSocket chat channel. Each connection is one
// conversation: frames are handled in order and the connection keeps its
// own history.
package webchat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cortexhub/orchestrator-gateway/internal/channel"
	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/gateway"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
)

// Frame types.
const (
	TypeMessage = "message"
	TypeReset   = "reset"
	TypeReply   = "reply"
	TypeError   = "error"
)

const writeWait = 10 * time.Second

// WSMessage is a frame in either direction.
type WSMessage struct {
	Type    string         `json:"type"`
	Content string         `json:"content,omitempty"`
	Action  string         `json:"action,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

type WebChatAdapter struct {
	turner      channel.Turner
	upgrader    websocket.Upgrader
	conns       map[string]*websocket.Conn
	connMux     sync.RWMutex
	historySize int
	logger      *slog.Logger
}

// NewWebChatAdapter creates the /ws handler. An empty origin list accepts
// every origin.
func NewWebChatAdapter(cfg config.WebChatConfig, turner channel.Turner) *WebChatAdapter {
	allowed := cfg.AllowedOrigins
	return &WebChatAdapter{
		turner: turner,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return slices.Contains(allowed, r.Header.Get("Origin"))
			},
		},
		conns:       make(map[string]*websocket.Conn),
		historySize: 20,
		logger:      logging.WithComponent("webchat"),
	}
}

func (w *WebChatAdapter) Name() string {
	return "webchat"
}

// Connections returns the number of open connections.
func (w *WebChatAdapter) Connections() int {
	w.connMux.RLock()
	defer w.connMux.RUnlock()
	return len(w.conns)
}

// Close drops every open connection.
func (w *WebChatAdapter) Close() {
	w.connMux.Lock()
	defer w.connMux.Unlock()
	for id, conn := range w.conns {
		conn.Close()
		delete(w.conns, id)
	}
}

func (w *WebChatAdapter) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	token := channel.TokenFromRequest(r)
	connID := uuid.NewString()
	log := w.logger.With("conn_id", connID, "token_ref", logging.TokenRef(token))

	w.connMux.Lock()
	w.conns[connID] = conn
	w.connMux.Unlock()

	defer func() {
		w.connMux.Lock()
		delete(w.conns, connID)
		w.connMux.Unlock()
		conn.Close()
	}()

	log.Info("webchat connected")
	history := channel.NewHistory(w.historySize)
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("WebSocket read ended", "error", err)
			}
			return
		}

		var reply WSMessage
		switch msg.Type {
		case TypeMessage:
			reply = w.turn(r.Context(), msg.Content, history, token, log)
		case TypeReset:
			history.Reset()
			reply = WSMessage{Type: TypeReply, Content: "History cleared."}
		default:
			reply = WSMessage{Type: TypeError, Content: "unsupported frame type: " + msg.Type}
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Debug("WebSocket write failed", "error", err)
			return
		}
	}
}

func (w *WebChatAdapter) turn(ctx context.Context, text string, history *channel.History, token string, log *slog.Logger) WSMessage {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	res, err := w.turner.HandleTurn(ctx, text, history.Messages(), token)
	switch {
	case errors.Is(err, gateway.ErrInvalidInput):
		return WSMessage{Type: TypeError, Content: "question is required"}
	case err != nil:
		log.Error("turn failed", "error", err)
		return WSMessage{Type: TypeError, Content: gateway.TechnicalDifficultyMessage}
	}
	history.Add(text, res.Answer)
	return WSMessage{Type: TypeReply, Content: res.Answer, Action: res.Action, Params: res.Params}
}
