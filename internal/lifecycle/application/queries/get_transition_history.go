package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// TransitionRecordDTO is a data transfer object for transition records.
type TransitionRecordDTO struct {
	ID                uuid.UUID                `json:"id"`
	ProjectID         uuid.UUID                `json:"project_id"`
	FromStageID       uuid.UUID                `json:"from_stage_id"`
	ToStageID         uuid.UUID                `json:"to_stage_id"`
	DecisionID        uuid.UUID                `json:"decision_id"`
	Notes             string                   `json:"notes,omitempty"`
	ConditionSnapshot []domain.ConditionResult `json:"condition_snapshot"`
	CommittedAt       time.Time                `json:"committed_at"`
}

// GetTransitionHistoryQuery contains the paging parameters for reading a
// project's transition history.
type GetTransitionHistoryQuery struct {
	ProjectID uuid.UUID
	Limit     int
	Offset    int
}

// QueryName identifies the query.
func (q GetTransitionHistoryQuery) QueryName() string { return "lifecycle.get_transition_history" }

// GetTransitionHistoryHandler handles the GetTransitionHistoryQuery.
type GetTransitionHistoryHandler struct {
	historyRepo domain.HistoryRepository
}

// NewGetTransitionHistoryHandler creates a new GetTransitionHistoryHandler.
func NewGetTransitionHistoryHandler(historyRepo domain.HistoryRepository) *GetTransitionHistoryHandler {
	return &GetTransitionHistoryHandler{historyRepo: historyRepo}
}

// Handle executes the GetTransitionHistoryQuery. Records come back most
// recent first.
func (h *GetTransitionHistoryHandler) Handle(ctx context.Context, query GetTransitionHistoryQuery) ([]TransitionRecordDTO, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	records, err := h.historyRepo.FindByProject(ctx, query.ProjectID, limit, offset)
	if err != nil {
		return nil, err
	}

	dtos := make([]TransitionRecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, TransitionRecordDTO{
			ID:                record.ID(),
			ProjectID:         record.ProjectID(),
			FromStageID:       record.FromStageID(),
			ToStageID:         record.ToStageID(),
			DecisionID:        record.DecisionID(),
			Notes:             record.Notes(),
			ConditionSnapshot: record.ConditionSnapshot(),
			CommittedAt:       record.CommittedAt(),
		})
	}
	return dtos, nil
}
