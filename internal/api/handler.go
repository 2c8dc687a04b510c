package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RichardoC/chatd/internal/db"
	"github.com/RichardoC/chatd/internal/llm"
	"github.com/RichardoC/chatd/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence the handlers need.
type Store interface {
	CreateSessionWithMessage(ctx context.Context, name, input, response string) (*models.Session, *models.Message, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, sessionID, input, response string) (*models.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]models.Message, error)
	FirstMessage(ctx context.Context, sessionID string) (*models.Message, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	store  Store
	llm    llm.Gateway
	model  string
	logger *zap.Logger
}

func NewHandler(store Store, gateway llm.Gateway, model string, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		llm:    gateway,
		model:  model,
		logger: logger,
	}
}

type PredictRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"session_id,omitempty"`
}

type PredictResponse struct {
	Prediction string `json:"prediction"`
	SessionID  string `json:"session_id"`
	ChatTitle  string `json:"chat_title"`
}

type SessionSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Timestamp   time.Time `json:"timestamp"`
	LastMessage string    `json:"lastMessage"`
}

type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	Messages     []HistoryEntry `json:"messages"`
	SessionTitle string         `json:"session_title"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Predict runs one chat turn. Only the new input is sent to the model; the
// exchange is persisted once the model has answered.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.fail(w, r, methodNotAllowed(http.MethodPost))
		return
	}

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, err)
			return
		}
		h.fail(w, r, invalidInput("Invalid JSON", err))
		return
	}

	input := strings.TrimSpace(req.Input)
	if input == "" {
		h.fail(w, r, invalidInput("No input provided", nil))
		return
	}

	ctx := r.Context()
	session, err := h.resolveSession(ctx, req.SessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	prediction, err := h.llm.Chat(ctx, h.model, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if session != nil {
		_, err = h.store.AppendMessage(ctx, session.ID, input, prediction)
		if errors.Is(err, db.ErrNotFound) {
			// deleted while the model was generating
			h.logger.Info("Session vanished during prediction, starting a new one",
				zap.String("session_id", session.ID))
			session = nil
		} else if err != nil {
			h.fail(w, r, err)
			return
		}
	}

	if session == nil {
		session, _, err = h.store.CreateSessionWithMessage(ctx, models.Truncate(input), input, prediction)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.logger.Info("Created session",
			zap.String("session_id", session.ID),
			zap.String("request_id", middleware.GetReqID(ctx)))
	}

	h.writeJSON(w, r, http.StatusOK, PredictResponse{
		Prediction: prediction,
		SessionID:  session.ID,
		ChatTitle:  session.Name,
	})
}

// resolveSession returns the existing session for id, or nil when a new one
// should be created. Unknown and malformed ids are treated like no id.
func (h *Handler) resolveSession(ctx context.Context, id string) (*models.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		h.logger.Debug("Ignoring malformed session id", zap.String("session_id", id))
		return nil, nil
	}

	session, err := h.store.GetSession(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		h.logger.Debug("Unknown session id, starting a new session", zap.String("session_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.fail(w, r, methodNotAllowed(http.MethodGet))
		return
	}

	ctx := r.Context()
	sessions, err := h.store.ListSessions(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		first, err := h.store.FirstMessage(ctx, s.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		preview := ""
		if first != nil {
			preview = models.Truncate(first.Input)
		}

		summaries = append(summaries, SessionSummary{
			ID:          s.ID,
			Title:       s.Name,
			Timestamp:   s.UpdatedAt,
			LastMessage: preview,
		})
	}

	h.logger.Debug("Retrieved sessions", zap.Int("count", len(summaries)))
	h.writeJSON(w, r, http.StatusOK, SessionsResponse{Sessions: summaries})
}

// GetHistory expands every stored message into a user entry followed by an
// assistant entry sharing the message timestamp.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.fail(w, r, methodNotAllowed(http.MethodGet))
		return
	}

	ctx := r.Context()
	session, err := h.lookupSession(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	messages, err := h.store.ListMessages(ctx, session.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	entries := make([]HistoryEntry, 0, 2*len(messages))
	for _, m := range messages {
		entries = append(entries,
			HistoryEntry{
				ID:        fmt.Sprintf("%d_user", m.ID),
				Content:   m.Input,
				Role:      "user",
				Timestamp: m.CreatedAt,
			},
			HistoryEntry{
				ID:        fmt.Sprintf("%d_assistant", m.ID),
				Content:   m.Response,
				Role:      "assistant",
				Timestamp: m.CreatedAt,
			},
		)
	}

	h.writeJSON(w, r, http.StatusOK, HistoryResponse{
		Messages:     entries,
		SessionTitle: session.Name,
	})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.fail(w, r, methodNotAllowed(http.MethodDelete))
		return
	}

	ctx := r.Context()
	session, err := h.lookupSession(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.store.DeleteSession(ctx, session.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info("Deleted session", zap.String("session_id", session.ID))
	h.writeJSON(w, r, http.StatusOK, MessageResponse{Message: "Session deleted successfully"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.fail(w, r, methodNotAllowed(http.MethodGet))
		return
	}

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		h.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound answers requests that match no route.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, notFound("Not found"))
}

func (h *Handler) lookupSession(ctx context.Context, id string) (*models.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound("Session not found")
	}
	return h.store.GetSession(ctx, id)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	status := e.Kind.Status()

	fields := []zap.Field{
		zap.String("kind", e.Kind.String()),
		zap.Int("status", status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(e.Message, fields...)
	} else {
		h.logger.Warn(e.Message, fields...)
	}

	h.writeJSON(w, r, status, ErrorResponse{Error: e.Message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response",
			zap.Error(err),
			zap.String("path", r.URL.Path))
	}
}
