package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
)

// StageTemplate describes one stage to provision.
type StageTemplate struct {
	Name              string
	EstimatedDuration time.Duration
	Deliverables      []string
	Prerequisites     []string
}

// ConditionTemplate describes one transition condition to provision. The
// edge is addressed by stage order: FromOrder's stage to the next one.
type ConditionTemplate struct {
	FromOrder   int
	Name        string
	Description string
	Type        domain.ConditionType
	Required    bool
	CheckName   string
}

// DefaultStageTemplates returns the standard five-stage lifecycle.
func DefaultStageTemplates() []StageTemplate {
	return []StageTemplate{
		{Name: "Discovery", EstimatedDuration: 14 * 24 * time.Hour},
		{Name: "Definition", EstimatedDuration: 14 * 24 * time.Hour},
		{Name: "Development", EstimatedDuration: 45 * 24 * time.Hour},
		{Name: "Validation", EstimatedDuration: 21 * 24 * time.Hour},
		{Name: "Launch", EstimatedDuration: 7 * 24 * time.Hour},
	}
}

// ProvisionStagesCommand creates a project's stage sequence, optionally with
// transition conditions on its edges. The first stage starts immediately.
type ProvisionStagesCommand struct {
	ProjectID  uuid.UUID
	Stages     []StageTemplate
	Conditions []ConditionTemplate
}

// CommandName identifies the command.
func (c ProvisionStagesCommand) CommandName() string { return "lifecycle.provision_stages" }

// ProvisionStagesResult contains the created stage IDs in order.
type ProvisionStagesResult struct {
	StageIDs []uuid.UUID
}

// ProvisionStagesHandler handles the ProvisionStagesCommand.
type ProvisionStagesHandler struct {
	stageRepo     domain.StageRepository
	conditionRepo domain.ConditionRepository
	uow           sharedApplication.UnitOfWork
	logger        *slog.Logger
}

// NewProvisionStagesHandler creates a new ProvisionStagesHandler.
func NewProvisionStagesHandler(
	stageRepo domain.StageRepository,
	conditionRepo domain.ConditionRepository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *ProvisionStagesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProvisionStagesHandler{
		stageRepo:     stageRepo,
		conditionRepo: conditionRepo,
		uow:           uow,
		logger:        logger,
	}
}

// Handle executes the ProvisionStagesCommand.
func (h *ProvisionStagesHandler) Handle(ctx context.Context, cmd ProvisionStagesCommand) (*ProvisionStagesResult, error) {
	templates := cmd.Stages
	if len(templates) == 0 {
		templates = DefaultStageTemplates()
	}

	existing, err := h.stageRepo.FindByProject(ctx, cmd.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.ErrStagesAlreadyProvisioned
	}

	var result *ProvisionStagesResult

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		stages := make([]*domain.Stage, 0, len(templates))
		ids := make([]uuid.UUID, 0, len(templates))

		for i, tmpl := range templates {
			stage, err := domain.NewStage(cmd.ProjectID, i+1, tmpl.Name)
			if err != nil {
				return err
			}
			if tmpl.EstimatedDuration > 0 {
				stage.SetEstimatedDuration(tmpl.EstimatedDuration)
			}
			for _, d := range tmpl.Deliverables {
				stage.AddDeliverable(d)
			}
			for _, p := range tmpl.Prerequisites {
				stage.AddPrerequisite(p)
			}
			stages = append(stages, stage)
			ids = append(ids, stage.ID())
		}

		// The project enters its first stage immediately.
		if err := stages[0].Start(); err != nil {
			return err
		}

		for _, stage := range stages {
			if err := h.stageRepo.Save(txCtx, stage); err != nil {
				return err
			}
		}

		for _, tmpl := range cmd.Conditions {
			if tmpl.FromOrder < 1 || tmpl.FromOrder >= len(stages) {
				return domain.ErrInvalidOrder
			}
			from := stages[tmpl.FromOrder-1]
			to := stages[tmpl.FromOrder]

			condition, err := domain.NewTransitionCondition(
				cmd.ProjectID, from.ID(), to.ID(), tmpl.Name, tmpl.Type, tmpl.Required)
			if err != nil {
				return err
			}
			if tmpl.Description != "" {
				condition.SetDescription(tmpl.Description)
			}
			if tmpl.CheckName != "" {
				condition.SetCheckName(tmpl.CheckName)
			}
			if err := h.conditionRepo.Save(txCtx, condition); err != nil {
				return err
			}
		}

		result = &ProvisionStagesResult{StageIDs: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("stages provisioned",
		"project_id", cmd.ProjectID,
		"stage_count", len(result.StageIDs),
		"condition_count", len(cmd.Conditions),
	)

	return result, nil
}
