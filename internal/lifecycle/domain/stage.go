package domain

import (
	"sort"
	"time"

	sharedDomain "github.com/felixgeelhaar/stagegate/internal/shared/domain"
	"github.com/google/uuid"
)

// Stage represents one ordered step in a project's lifecycle.
type Stage struct {
	sharedDomain.BaseAggregateRoot
	projectID         uuid.UUID
	order             int
	name              string
	status            StageStatus
	estimatedDuration time.Duration
	startDate         *time.Time
	endDate           *time.Time
	prerequisites     map[string]struct{}
	deliverables      []string
}

// NewStage creates a new stage in the not-started state.
func NewStage(projectID uuid.UUID, order int, name string) (*Stage, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if order <= 0 {
		return nil, ErrInvalidOrder
	}
	return &Stage{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		projectID:         projectID,
		order:             order,
		name:              name,
		status:            StatusNotStarted,
		prerequisites:     make(map[string]struct{}),
		deliverables:      []string{},
	}, nil
}

// Getters
func (s *Stage) ProjectID() uuid.UUID              { return s.projectID }
func (s *Stage) Order() int                        { return s.order }
func (s *Stage) Name() string                      { return s.name }
func (s *Stage) Status() StageStatus               { return s.status }
func (s *Stage) EstimatedDuration() time.Duration  { return s.estimatedDuration }
func (s *Stage) StartDate() *time.Time             { return s.startDate }
func (s *Stage) EndDate() *time.Time               { return s.endDate }
func (s *Stage) Deliverables() []string            { return s.deliverables }

// Prerequisites returns the prerequisite names as a sorted copy.
func (s *Stage) Prerequisites() []string {
	out := make([]string, 0, len(s.prerequisites))
	for p := range s.prerequisites {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasPrerequisite reports whether the named prerequisite is declared.
func (s *Stage) HasPrerequisite(name string) bool {
	_, ok := s.prerequisites[name]
	return ok
}

// SetName updates the stage name.
func (s *Stage) SetName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	s.name = name
	s.Touch()
	return nil
}

// SetEstimatedDuration updates the planning estimate for the stage.
func (s *Stage) SetEstimatedDuration(d time.Duration) {
	s.estimatedDuration = d
	s.Touch()
}

// SetOrder moves the stage to a new position. Uniqueness across the project
// is enforced by the stage graph, not here.
func (s *Stage) SetOrder(order int) error {
	if order <= 0 {
		return ErrInvalidOrder
	}
	s.order = order
	s.Touch()
	return nil
}

// AddPrerequisite declares a prerequisite for entering the stage.
func (s *Stage) AddPrerequisite(name string) {
	s.prerequisites[name] = struct{}{}
	s.Touch()
}

// AddDeliverable declares a deliverable document for the stage.
func (s *Stage) AddDeliverable(name string) {
	s.deliverables = append(s.deliverables, name)
	s.Touch()
}

// updateStatus transitions the stage to a new status through the state machine.
func (s *Stage) updateStatus(target StageStatus) error {
	if !s.status.CanTransitionTo(target) {
		return ErrInvalidStatusTransition
	}
	s.status = target
	s.Touch()
	return nil
}

// Start marks the stage as the project's active stage and stamps the start
// date if unset.
func (s *Stage) Start() error {
	if err := s.updateStatus(StatusInProgress); err != nil {
		return err
	}
	if s.startDate == nil {
		now := time.Now().UTC()
		s.startDate = &now
	}
	return nil
}

// Complete marks the stage as passed and stamps the end date if unset.
func (s *Stage) Complete() error {
	if err := s.updateStatus(StatusCompleted); err != nil {
		return err
	}
	if s.endDate == nil {
		now := time.Now().UTC()
		s.endDate = &now
	}
	return nil
}

// Block marks the active stage as stalled on an external event.
func (s *Stage) Block(reason string) error {
	if err := s.updateStatus(StatusBlocked); err != nil {
		return err
	}
	s.AddDomainEvent(NewStageBlockedEvent(s, reason))
	return nil
}

// Unblock returns a blocked stage to the active state.
func (s *Stage) Unblock() error {
	if err := s.updateStatus(StatusInProgress); err != nil {
		return err
	}
	s.AddDomainEvent(NewStageUnblockedEvent(s))
	return nil
}

// RehydrateStage recreates a stage from persisted data.
func RehydrateStage(
	id, projectID uuid.UUID,
	order int,
	name string,
	status StageStatus,
	estimatedDuration time.Duration,
	startDate, endDate *time.Time,
	prerequisites []string,
	deliverables []string,
	version int,
	createdAt, updatedAt time.Time,
) *Stage {
	prereqs := make(map[string]struct{}, len(prerequisites))
	for _, p := range prerequisites {
		prereqs[p] = struct{}{}
	}
	if deliverables == nil {
		deliverables = []string{}
	}
	return &Stage{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt), version),
		projectID:         projectID,
		order:             order,
		name:              name,
		status:            status,
		estimatedDuration: estimatedDuration,
		startDate:         startDate,
		endDate:           endDate,
		prerequisites:     prereqs,
		deliverables:      deliverables,
	}
}
