package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMetadata is returned when a file carries no readable metadata at all
var ErrNoMetadata = errors.New("no metadata found")

// ToolError describes a failed call to an external tool or library,
// keeping whatever diagnostic output the tool produced.
type ToolError struct {
	Tool   string
	Op     string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Tool, e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, " (output: %s)", out)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NewToolError wraps err with the tool name, operation and captured output
func NewToolError(tool, op, output string, err error) error {
	return &ToolError{Tool: tool, Op: op, Output: output, Err: err}
}

type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Configuration Error: %s", e.Message)
}

type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Storage Error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("Storage Error: %s", e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewConfigError(format string, args ...interface{}) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

func NewStorageError(message string, err error) error {
	return &StorageError{Message: message, Err: err}
}
