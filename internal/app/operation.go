package app

import "strings"

// Operation statuses recorded in the audit log.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks the CLI command being run. It lives in memory with ID=0
// until a mutating command persists it, which gives it the store's
// auto-increment id. That id doubles as the snapshot version in the vault.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

// NewOperation creates an in-memory operation. params are joined with
// spaces into the recorded parameter string.
func NewOperation(operation string, params ...string) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: strings.Join(params, " "),
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the store.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation failed when err is non-nil and returns err.
func (op *Operation) Fail(err error) error {
	if err != nil {
		op.Status = StatusError
	}
	return err
}
