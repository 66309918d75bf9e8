package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/quizlabs/internal/game"
	"github.com/ashureev/quizlabs/internal/identity"
	"github.com/ashureev/quizlabs/internal/quiz"
	"github.com/ashureev/quizlabs/internal/store"
	"github.com/coder/websocket"
)

const (
	writeTimeout   = 5 * time.Second
	maxMessageSize = 4 << 10
	channelName    = "ws"
)

// clientMessage is a message sent by the browser.
type clientMessage struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// serverMessage is a message sent to the browser.
type serverMessage struct {
	Type    string        `json:"type"`
	View    *game.View    `json:"view,omitempty"`
	Correct *bool         `json:"correct,omitempty"`
	Score   *int          `json:"score,omitempty"`
	Summary *quiz.Summary `json:"summary,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Handler plays quiz games over a WebSocket.
type Handler struct {
	repo          store.Repository
	games         *game.Registry
	conns         *ConnManager
	delay         time.Duration
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new live play handler. delay is the pause between
// answer feedback and the next question.
func NewHandler(repo store.Repository, games *game.Registry, conns *ConnManager, delay time.Duration, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		repo:          repo,
		games:         games,
		conns:         conns,
		delay:         delay,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := game.Key{
		UserID:    identity.UserIDFromContext(r.Context()),
		SessionID: identity.SessionIDFromContext(r.Context()),
	}
	slog.Info("Live connection request", "user_id", key.UserID, "session_id", key.SessionID, "ip", r.RemoteAddr)

	if key.UserID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", key.UserID)
		return
	}
	ws.SetReadLimit(maxMessageSize)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "game ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", key.UserID)
		}
	}()

	h.conns.Register(key, ws)
	defer h.conns.Unregister(key, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Resume a game started earlier in this tab.
	if view, err := h.games.View(key); err == nil {
		h.sendView(ctx, ws, view)
	}

	h.readLoop(ctx, ws, key)
	slog.Info("Live session ended", "user_id", key.UserID, "session_id", key.SessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, key game.Key) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "user_id", key.UserID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", key.UserID)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(ctx, ws, "malformed message")
			continue
		}

		switch msg.Type {
		case "start":
			view, err := h.games.Start(key, msg.Title)
			if err != nil {
				h.sendError(ctx, ws, err.Error())
				continue
			}
			h.sendView(ctx, ws, view)
		case "answer":
			if msg.Index == nil {
				h.sendError(ctx, ws, "index is required")
				continue
			}
			if !h.answer(ctx, ws, key, *msg.Index) {
				return
			}
		case "ping":
			h.send(ctx, ws, serverMessage{Type: "pong"})
		case "quit":
			h.games.Discard(key)
			return
		default:
			h.sendError(ctx, ws, "unknown message type")
		}

		go h.touch(key.UserID)
	}
}

// answer submits index and paces the follow-up. It returns false when the
// connection went away during the feedback delay.
func (h *Handler) answer(ctx context.Context, ws *websocket.Conn, key game.Key, index int) bool {
	out, err := h.games.Answer(ctx, key, index, channelName)
	if err != nil {
		h.sendError(ctx, ws, err.Error())
		return true
	}

	correct, score := out.Correct, out.Score
	if err := h.send(ctx, ws, serverMessage{Type: "feedback", Correct: &correct, Score: &score}); err != nil {
		return false
	}

	if h.delay > 0 {
		timer := time.NewTimer(h.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}

	if out.Finished {
		h.send(ctx, ws, serverMessage{Type: "summary", Summary: out.Summary})
		return true
	}
	view, err := h.games.View(key)
	if err != nil {
		// Abandoned from another surface while the feedback was showing.
		h.sendError(ctx, ws, err.Error())
		return true
	}
	h.sendView(ctx, ws, view)
	return true
}

func (h *Handler) sendView(ctx context.Context, ws *websocket.Conn, view game.View) {
	if view.Finished {
		h.send(ctx, ws, serverMessage{Type: "summary", Summary: view.Summary})
		return
	}
	h.send(ctx, ws, serverMessage{Type: "question", View: &view})
}

func (h *Handler) sendError(ctx context.Context, ws *websocket.Conn, message string) {
	h.send(ctx, ws, serverMessage{Type: "error", Error: message})
}

func (h *Handler) send(ctx context.Context, ws *websocket.Conn, msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err, "type", msg.Type)
		return err
	}
	return nil
}

func (h *Handler) touch(userID string) {
	if h.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.repo.UpdateLastSeen(ctx, userID, time.Now()); err != nil {
		slog.Warn("Failed to update last seen", "error", err)
	}
}
