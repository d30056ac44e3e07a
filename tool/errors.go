package tool

import "fmt"

// NotFoundError is returned when a tool call references an unregistered tool.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool: not found: %s", e.Name)
}

// ArgumentError reports arguments that could not be parsed or did not match
// the tool's parameter schema. The tool is never invoked.
type ArgumentError struct {
	Name   string
	CallID string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tool: invalid arguments for %s: %v", e.Name, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// ExecutionError wraps a failure returned or raised by a tool.
type ExecutionError struct {
	Name string
	Err  error
	// Panicked is set when the tool panicked instead of returning.
	Panicked bool
}

func (e *ExecutionError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("tool: %s panicked: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("tool: %s execution failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// AlreadyRegisteredError is returned when registering a tool with a duplicate name.
type AlreadyRegisteredError struct {
	Name string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("tool: already registered: %s", e.Name)
}
