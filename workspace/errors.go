package workspace

import (
	"errors"
	"fmt"
)

// ErrorCode classifies tool failures for model consumption.
type ErrorCode string

const (
	ErrFileNotFound     ErrorCode = "file_not_found"
	ErrPermissionDenied ErrorCode = "permission_denied"
	ErrInvalidPath      ErrorCode = "invalid_path"
	ErrFileTooLarge     ErrorCode = "file_too_large"
	ErrInvalidRegex     ErrorCode = "invalid_regex"
	ErrGitError         ErrorCode = "git_error"
	ErrFunctionNotFound ErrorCode = "function_not_found"
)

// ToolError is a structured tool failure. It is never allowed to abort the
// agent loop; the executor converts it into a result the model can read and
// act on.
type ToolError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Context     map[string]any
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsToolError extracts a *ToolError from err, if present.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
