package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/colloquyhq/colloquy/internal/logging"
	"github.com/colloquyhq/colloquy/internal/runtime"
	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/session"
)

// Server exposes conversations over HTTP. Classification happens outside
// the process: clients POST already-classified commands and receive the
// turn's messages plus the new suspension point.
type Server struct {
	engine   *runtime.Engine
	sessions *session.Manager
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the HTTP surface over an engine and session manager.
func NewServer(engine *runtime.Engine, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/flows", s.handleListFlows)
	r.Get("/conversations", s.handleListConversations)
	r.Route("/conversations/{conversationID}", func(r chi.Router) {
		r.Get("/", s.handleGetConversation)
		r.Delete("/", s.handleDeleteConversation)
		r.Post("/turns", s.handleTurn)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot(domain.NewTurnState(""))
	writeJSON(w, http.StatusOK, map[string]any{
		"flows":   snap.AvailableFlows,
		"actions": snap.AvailableActions,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list conversations", "err", err)
		http.Error(w, "listing not supported", http.StatusNotImplemented)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": ids})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	state, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load conversation", "conversation", id, "err", err)
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{
		ConversationID: id,
		Phase:          state.Phase,
		AwaitedSlot:    state.AwaitedSlot,
		Pending:        state.Pending,
		Stack:          stackSummary(state),
		TurnCount:      state.TurnCount,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.logger.Error("failed to delete conversation", "conversation", id, "err", err)
		http.Error(w, "failed to delete conversation", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	var body turnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd, err := body.Command.toDomain()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var resp turnResponse
	err = s.sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		state, err := s.sessions.Store().Load(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			state = domain.NewTurnState(id)
			err = nil
		}
		if err != nil {
			return err
		}

		next, res, err := s.engine.ProcessTurn(ctx, state, cmd)
		if err != nil {
			return err
		}
		messages := res.Messages

		// HTTP clients have no separate resume call: a confirmed action
		// runs to its next suspension point within the same request.
		if next.Phase == domain.PhaseReadyForAction {
			resumed, resumeRes, err := s.engine.Resume(ctx, next)
			if err != nil {
				return err
			}
			next = resumed
			messages = append(messages, resumeRes.Messages...)
		}

		if err := s.sessions.Store().Save(ctx, id, next); err != nil {
			return err
		}

		resp = turnResponse{
			ConversationID: id,
			Phase:          next.Phase,
			AwaitedSlot:    next.AwaitedSlot,
			Messages:       messages,
			Pending:        next.Pending,
			Stack:          stackSummary(next),
			TurnCount:      next.TurnCount,
		}
		return nil
	})
	if err != nil {
		s.logger.Error("turn failed", "conversation", id, "err", err)
		http.Error(w, "failed to process turn", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func stackSummary(st *domain.TurnState) []stackFrame {
	frames := make([]stackFrame, 0, len(st.Stack))
	for _, inst := range st.Stack {
		frames = append(frames, stackFrame{
			FlowName:    inst.FlowName,
			State:       inst.State,
			CurrentStep: inst.CurrentStep,
			PauseReason: inst.PauseReason,
		})
	}
	return frames
}

type turnRequest struct {
	Command commandDTO `json:"command"`
}

type turnResponse struct {
	ConversationID string                   `json:"conversation_id"`
	Phase          domain.ConversationPhase `json:"phase"`
	AwaitedSlot    string                   `json:"awaited_slot,omitempty"`
	Messages       []domain.Message         `json:"messages"`
	Pending        *domain.PendingTask      `json:"pending,omitempty"`
	Stack          []stackFrame             `json:"stack"`
	TurnCount      int                      `json:"turn_count"`
}

type conversationResponse struct {
	ConversationID string                   `json:"conversation_id"`
	Phase          domain.ConversationPhase `json:"phase"`
	AwaitedSlot    string                   `json:"awaited_slot,omitempty"`
	Pending        *domain.PendingTask      `json:"pending,omitempty"`
	Stack          []stackFrame             `json:"stack"`
	TurnCount      int                      `json:"turn_count"`
}

type stackFrame struct {
	FlowName    string               `json:"flow_name"`
	State       domain.InstanceState `json:"state"`
	CurrentStep string               `json:"current_step,omitempty"`
	PauseReason string               `json:"pause_reason,omitempty"`
}

// commandDTO is the JSON shape of a classified command. Type selects the
// variant; unused fields are ignored.
type commandDTO struct {
	Type       string         `json:"type"`
	Slots      map[string]any `json:"slots,omitempty"`
	Name       string         `json:"name,omitempty"`
	Value      any            `json:"value,omitempty"`
	Previous   any            `json:"previous,omitempty"`
	Decision   string         `json:"decision,omitempty"`
	Flow       string         `json:"flow,omitempty"`
	Utterance  string         `json:"utterance,omitempty"`
	TargetSlot string         `json:"target_slot,omitempty"`
}

func (c commandDTO) toDomain() (domain.Command, error) {
	switch c.Type {
	case "slot_value":
		return domain.SlotValue{Slots: c.Slots}, nil
	case "correction":
		return domain.Correction{Name: c.Name, Value: c.Value, Previous: c.Previous}, nil
	case "modification":
		return domain.Modification{Name: c.Name, Value: c.Value, Previous: c.Previous}, nil
	case "confirmation":
		switch c.Decision {
		case "yes":
			return domain.ConfirmationAnswer{Decision: domain.ConfirmYes}, nil
		case "no":
			return domain.ConfirmationAnswer{Decision: domain.ConfirmNo}, nil
		default:
			return domain.ConfirmationAnswer{Decision: domain.ConfirmUnclear}, nil
		}
	case "intent_change":
		return domain.IntentChange{FlowName: c.Flow, Slots: c.Slots}, nil
	case "digression":
		return domain.Digression{Utterance: c.Utterance}, nil
	case "clarification":
		return domain.Clarification{TargetSlot: c.TargetSlot}, nil
	case "cancellation":
		return domain.Cancellation{}, nil
	case "continuation":
		return domain.Continuation{}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", c.Type)
	}
}
