package command

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
)

// Executor runs commands of one type.
type Executor interface {
	Execute(ctx context.Context, cmd Command) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// Registry maps command types to executors.
type Registry struct {
	mu        sync.RWMutex
	executors map[Type]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[Type]Executor),
	}
}

// Register installs e for t, replacing any previous executor.
func (r *Registry) Register(t Type, e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[t] = e
}

// Unregister removes the executor for t.
func (r *Registry) Unregister(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.executors, t)
}

// Execute runs cmd with the executor registered for its type. Failures are
// reported as ErrExecution (or ErrUnknownCommand when nothing is registered).
func (r *Registry) Execute(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return domain.ErrInvalidArgument.WithDetails("nil command")
	}

	r.mu.RLock()
	e, ok := r.executors[cmd.CommandType()]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrUnknownCommand.WithDetails(string(cmd.CommandType()))
	}

	if err := e.Execute(ctx, cmd); err != nil {
		if errors.Is(err, domain.ErrExecution) {
			return err
		}
		return domain.ErrExecution.WithDetails(string(cmd.CommandType())).WithCause(err)
	}
	return nil
}
