package evaluation

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("evaluation run not found")

	// ErrNotFound is returned by resolvers for unknown scenarios, rule packs
	// and artifacts.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReferences is returned by Submit when a referenced scenario,
	// rule pack or artifact does not exist.
	ErrInvalidReferences = errors.New("invalid references")

	// ErrRunNotTerminal is returned when deleting a run that has not finished.
	ErrRunNotTerminal = errors.New("evaluation run is not in a terminal state")

	// ErrRunExists is returned when creating a run whose ID is taken.
	ErrRunExists = errors.New("evaluation run already exists")
)

// TransitionError reports a rejected status change.
type TransitionError struct {
	RunID string
	From  Status
	To    Status
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition [run_id=%s]: %s -> %s", e.RunID, e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(runID string, from, to Status) *TransitionError {
	return &TransitionError{RunID: runID, From: from, To: to}
}

// StorageError represents an error from a run store backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("create", "finalize", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// Stage names the orchestration step a pipeline fault occurred in.
type Stage string

const (
	StageLoad     Stage = "load"
	StageStart    Stage = "start"
	StageSimulate Stage = "simulate"
	StageEvaluate Stage = "evaluate"
	StageFinalize Stage = "finalize"
)

// PipelineFault is an orchestration-level failure not attributable to any
// single rule. It is terminal for the run but never returned past the
// orchestrator.
type PipelineFault struct {
	RunID string
	Stage Stage
	Cause error
	// Stack is the goroutine stack captured when the fault came from a panic.
	Stack string
}

// Error implements the error interface.
func (e *PipelineFault) Error() string {
	return fmt.Sprintf("pipeline fault [run_id=%s, stage=%s]: %v", e.RunID, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PipelineFault) Unwrap() error {
	return e.Cause
}

// NewPipelineFault creates a new PipelineFault.
func NewPipelineFault(runID string, stage Stage, cause error) *PipelineFault {
	return &PipelineFault{RunID: runID, Stage: stage, Cause: cause}
}
