package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// MalformedRecord indicates a log line that cannot be split into its fields
	MalformedRecord ErrorCode = "MALFORMED_RECORD"
	// InvalidTimestamp indicates a log line whose timestamp is not a non-negative integer
	InvalidTimestamp ErrorCode = "INVALID_TIMESTAMP"
	// ConfigInvariantViolation indicates a watched path outside every configured root
	ConfigInvariantViolation ErrorCode = "CONFIG_INVARIANT_VIOLATION"
	// IgnoreToolUnavailable indicates the ignore-rule evaluator could not answer
	IgnoreToolUnavailable ErrorCode = "IGNORE_TOOL_UNAVAILABLE"
	// StorageFailure indicates a raw log or span store could not be read or written
	StorageFailure ErrorCode = "STORAGE_FAILURE"
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// TrackerRunning indicates another tracker already owns the raw log
	TrackerRunning ErrorCode = "TRACKER_RUNNING"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file by hand
	EditFile FixActionType = "edit-file"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// TrackError represents a timetrack error with code, message, and suggestions
type TrackError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a TrackError with the default fixes registered for code
func New(code ErrorCode, message string) *TrackError {
	return &TrackError{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Wrap creates a TrackError around an underlying cause
func Wrap(code ErrorCode, message string, cause error) *TrackError {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface
func (e *TrackError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TrackError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TrackError) WithDetails(details interface{}) *TrackError {
	e.Details = details
	return e
}

// WithFix appends a suggested fix to the error
func (e *TrackError) WithFix(fix FixAction) *TrackError {
	e.SuggestedFixes = append(e.SuggestedFixes, fix)
	return e
}

// CodeOf returns the code of the first TrackError in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var te *TrackError
	if stderrors.As(err, &te) {
		return te.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a TrackError with code
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	MalformedRecord: {
		{
			Type:        EditFile,
			Description: "Remove or correct the offending line in the raw log",
		},
		{
			Type:        RunCommand,
			Command:     "timetrack clear --backup",
			Safe:        false,
			Description: "Back up and reset all tracking history",
		},
	},
	InvalidTimestamp: {
		{
			Type:        EditFile,
			Description: "Timestamps must be unsigned seconds since the Unix epoch",
		},
	},
	ConfigInvariantViolation: {
		{
			Type:        RunCommand,
			Command:     "timetrack config show",
			Safe:        true,
			Description: "Check that trackPaths lists every watched root",
		},
	},
	IgnoreToolUnavailable: {
		{
			Type:        InstallTool,
			Tool:        "git",
			Description: "Install git to honor per-project ignore rules",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "timetrack config show",
			Safe:        true,
			Description: "Review the effective configuration",
		},
	},
	TrackerRunning: {
		{
			Type:        RunCommand,
			Command:     "timetrack status",
			Safe:        true,
			Description: "Show the running tracker",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		out := make([]FixAction, len(fixes))
		copy(out, fixes)
		return out
	}
	return nil
}
