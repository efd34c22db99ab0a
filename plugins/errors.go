package plugins

import (
	"errors"
	"fmt"
	"strings"
)

// Lifecycle errors returned by the plugin manager. They are matched with errors.Is
// through a PluginError.
var (
	ErrPluginNotFound      = errors.New("plugin not found")
	ErrPluginAlreadyExists = errors.New("plugin already exists")
	ErrPluginNotActive     = errors.New("plugin not active")
	ErrPluginAlreadyActive = errors.New("plugin already active")
	// ErrPluginDisabled is returned when the status provider vetoes a start.
	ErrPluginDisabled = errors.New("plugin disabled")
	// ErrInvalidPluginID is returned for ids that cannot be used as an extension namespace.
	ErrInvalidPluginID = errors.New("invalid plugin ID")
	// ErrPluginDependencyNotMet covers both missing and cyclic dependencies.
	ErrPluginDependencyNotMet = errors.New("plugin dependency not met")
)

// PluginError ties a lifecycle failure to the plugin and the manager step
// (Add, Start, Stop) it came from.
type PluginError struct {
	PluginID string
	Op       string
	Reason   string
	Err      error
}

func (e *PluginError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "plugin %s: %s", e.PluginID, strings.ToLower(e.Op))
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError returns a PluginError for step op of plugin id.
func NewPluginError(id, op, reason string, err error) *PluginError {
	return &PluginError{PluginID: id, Op: op, Reason: reason, Err: err}
}
