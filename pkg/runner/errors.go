package runner

import (
	"fmt"
	"strings"
)

// TaskError is the final failure of one input item after all attempts.
type TaskError struct {
	// Index is the item's position in the input slice.
	Index int

	// Attempts is how many times the task ran, first try included.
	Attempts int

	Err error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("item %d failed after %d attempt(s): %v", e.Index, e.Attempts, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// MultiError collects every task failure of a Run, in input order.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString("multiple errors:")
	for _, err := range m.Errors {
		b.WriteString("\n ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error { return m.Errors }

// panicError carries a recovered panic value.
type panicError struct {
	value interface{}
}

func (p *panicError) Error() string {
	return fmt.Sprintf("task panicked: %v", p.value)
}
