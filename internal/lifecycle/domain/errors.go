package domain

import "errors"

var (
	// ErrStageNotFound indicates the requested stage was not found.
	ErrStageNotFound = errors.New("stage not found")

	// ErrConditionNotFound indicates the requested transition condition was not found.
	ErrConditionNotFound = errors.New("transition condition not found")

	// ErrNoStagesDefined indicates the project has no stage graph.
	ErrNoStagesDefined = errors.New("project has no stages defined")

	// ErrNoCurrentStage indicates every stage of the project is terminal.
	ErrNoCurrentStage = errors.New("project has no current stage")

	// ErrTerminalStage indicates the stage is the last in its project.
	ErrTerminalStage = errors.New("stage is the terminal stage")

	// ErrInvalidEdge indicates the requested transition does not respect stage ordering.
	ErrInvalidEdge = errors.New("transition does not respect stage ordering")

	// ErrInvalidStageStatus indicates an unknown stage status value.
	ErrInvalidStageStatus = errors.New("invalid stage status")

	// ErrInvalidStatusTransition indicates an invalid status transition was attempted.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrDuplicateOrder indicates two stages of the same project would share an order.
	ErrDuplicateOrder = errors.New("duplicate stage order")

	// ErrInvalidOrder indicates a non-positive stage order.
	ErrInvalidOrder = errors.New("stage order must be positive")

	// ErrStaleDecision indicates a commit was attempted against an outdated gate decision.
	ErrStaleDecision = errors.New("gate decision is stale")

	// ErrDecisionNotAdmissible indicates a commit was attempted against an
	// inadmissible gate decision.
	ErrDecisionNotAdmissible = errors.New("gate decision is not admissible")

	// ErrDecisionMismatch indicates the gate decision was issued for a
	// different transition request.
	ErrDecisionMismatch = errors.New("gate decision does not match request")

	// ErrConcurrentTransitionConflict indicates two commits raced for the same project.
	ErrConcurrentTransitionConflict = errors.New("concurrent transition conflict")

	// ErrStagesAlreadyProvisioned indicates the project already has a stage graph.
	ErrStagesAlreadyProvisioned = errors.New("project stages already provisioned")

	// ErrStageReferenced indicates the stage is referenced by transition
	// history and cannot be deleted.
	ErrStageReferenced = errors.New("stage is referenced by transition history")

	// ErrEmptyName indicates the name cannot be empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidConditionType indicates an unknown condition type.
	ErrInvalidConditionType = errors.New("invalid condition type")
)
