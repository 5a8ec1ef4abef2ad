package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/commands"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/queries"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/services"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// TransitionHandler handles the stage and transition API requests.
type TransitionHandler struct {
	gate            *services.TransitionGate
	commitHandler   *commands.CommitTransitionHandler
	stageGraphQuery *queries.GetStageGraphHandler
	historyQuery    *queries.GetTransitionHistoryHandler
	logger          *slog.Logger
}

// TransitionHandlerConfig holds dependencies for the transition handler.
type TransitionHandlerConfig struct {
	Gate            *services.TransitionGate
	CommitHandler   *commands.CommitTransitionHandler
	StageGraphQuery *queries.GetStageGraphHandler
	HistoryQuery    *queries.GetTransitionHistoryHandler
	Logger          *slog.Logger
}

// NewTransitionHandler creates a new transition handler.
func NewTransitionHandler(cfg TransitionHandlerConfig) *TransitionHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TransitionHandler{
		gate:            cfg.Gate,
		commitHandler:   cfg.CommitHandler,
		stageGraphQuery: cfg.StageGraphQuery,
		historyQuery:    cfg.HistoryQuery,
		logger:          cfg.Logger,
	}
}

// GetStages handles GET /api/v1/projects/{projectID}/stages
func (h *TransitionHandler) GetStages(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	graph, err := h.stageGraphQuery.Handle(r.Context(), queries.GetStageGraphQuery{ProjectID: projectID})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

type evaluateRequest struct {
	FromStageID uuid.UUID  `json:"from_stage_id"`
	ToStageID   uuid.UUID  `json:"to_stage_id"`
	ConditionID *uuid.UUID `json:"condition_id,omitempty"`
	UseCached   bool       `json:"use_cached,omitempty"`
	TTLSeconds  int        `json:"ttl_seconds,omitempty"`
}

// Evaluate handles POST /api/v1/projects/{projectID}/transitions/evaluate.
// With condition_id set, only that condition is re-evaluated and no
// decision is issued.
func (h *TransitionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	var body evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request := domain.TransitionRequest{
		ProjectID:   projectID,
		FromStageID: body.FromStageID,
		ToStageID:   body.ToStageID,
	}

	if body.ConditionID != nil {
		result, err := h.gate.EvaluateCondition(r.Context(), request, *body.ConditionID)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	var (
		decision domain.GateDecision
		err      error
	)
	if body.UseCached {
		ttl := time.Duration(body.TTLSeconds) * time.Second
		decision, err = h.gate.EvaluateCached(r.Context(), request, ttl)
	} else {
		decision, err = h.gate.Evaluate(r.Context(), request)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type commitRequest struct {
	FromStageID uuid.UUID `json:"from_stage_id"`
	ToStageID   uuid.UUID `json:"to_stage_id"`
	DecisionID  uuid.UUID `json:"decision_id"`
	Notes       string    `json:"notes,omitempty"`
}

// Commit handles POST /api/v1/projects/{projectID}/transitions/commit
func (h *TransitionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	var body commitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.DecisionID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "decision_id is required")
		return
	}

	result, err := h.commitHandler.Handle(r.Context(), commands.CommitTransitionCommand{
		Request: domain.TransitionRequest{
			ProjectID:   projectID,
			FromStageID: body.FromStageID,
			ToStageID:   body.ToStageID,
		},
		DecisionID: body.DecisionID,
		Notes:      body.Notes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record_id":   result.RecordID,
		"decision_id": result.DecisionID,
	})
}

// GetHistory handles GET /api/v1/projects/{projectID}/transitions
func (h *TransitionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseUUIDPath(w, r, "projectID")
	if !ok {
		return
	}

	records, err := h.historyQuery.Handle(r.Context(), queries.GetTransitionHistoryQuery{
		ProjectID: projectID,
		Limit:     parseIntParam(r, "limit", 50),
		Offset:    parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": projectID,
		"records":    records,
	})
}

// writeDomainError maps domain errors to HTTP statuses. Gate verdicts are
// payload, never errors; only structural problems land here.
func (h *TransitionHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrStageNotFound),
		errors.Is(err, domain.ErrConditionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidEdge),
		errors.Is(err, domain.ErrNoStagesDefined),
		errors.Is(err, domain.ErrTerminalStage):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStaleDecision),
		errors.Is(err, domain.ErrDecisionMismatch),
		errors.Is(err, domain.ErrDecisionNotAdmissible),
		errors.Is(err, domain.ErrConcurrentTransitionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseUUIDPath(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
