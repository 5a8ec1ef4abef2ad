// Package application holds the contracts shared by the command and query
// handlers of every bounded context.
package application

import "context"

// Command is a request to change system state. CommandName identifies the
// operation in logs and metrics, e.g. "lifecycle.commit_transition".
type Command interface {
	CommandName() string
}

// CommandHandler executes one command type and returns its result.
type CommandHandler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}
