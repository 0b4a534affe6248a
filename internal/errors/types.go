package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeStartup       ErrorType = "STARTUP_ERROR"
	ErrorTypeDownload      ErrorType = "DOWNLOAD_ERROR"
	ErrorTypeNoDescription ErrorType = "NO_DESCRIPTION_ERROR"
	ErrorTypeRefine        ErrorType = "REFINE_ERROR"
	ErrorTypeModel         ErrorType = "MODEL_ERROR"
	ErrorTypeTimeout       ErrorType = "TIMEOUT_ERROR"
	ErrorTypeDelivery      ErrorType = "DELIVERY_ERROR"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
)

// Severity says how far an error is allowed to travel.
type Severity string

const (
	// SeverityFatal stops the process before it serves any request.
	SeverityFatal Severity = "fatal"
	// SeverityHard ends a pipeline run with a reply naming the failed step.
	SeverityHard Severity = "hard"
	// SeveritySoft is absorbed by a fallback to the previous recipe text.
	SeveritySoft Severity = "soft"
	// SeverityUnexpected ends a run with the generic error reply.
	SeverityUnexpected Severity = "unexpected"
)

// Replies shown to the chat user for hard failures.
const (
	MsgDownloadFailed   = "❌ Could not download the video."
	MsgNoDescription    = "❌ Could not fetch a description from the link."
	MsgRefineFailed     = "❌ An error occurred while refining the recipe."
	msgUnexpectedPrefix = "An unexpected error occurred: "
)

// AppError represents a structured error for the application
type AppError struct {
	Type        ErrorType `json:"type"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	ErrorCode   string    `json:"errorCode"`
	UserMessage string    `json:"userMessage,omitempty"`
	Err         error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// IsHard reports whether the error terminates a pipeline run.
func (e *AppError) IsHard() bool {
	return e.Severity == SeverityHard || e.Severity == SeverityFatal
}

// As extracts the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// UserMessageFor returns the reply the chat user should see for err.
// Anything without a prepared message is reported as unexpected, cause included.
func UserMessageFor(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return msgUnexpectedPrefix + err.Error()
}

// NewStartupError creates a fatal configuration or environment error
func NewStartupError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeStartup,
		Severity:  SeverityFatal,
		Message:   message,
		ErrorCode: errorCode,
		Err:       err,
	}
}

// NewDownloadError creates a hard error for a failed video download
func NewDownloadError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:        ErrorTypeDownload,
		Severity:    SeverityHard,
		Message:     message,
		ErrorCode:   errorCode,
		UserMessage: MsgDownloadFailed,
		Err:         err,
	}
}

// NewNoDescriptionError creates a hard error for a video without description text
func NewNoDescriptionError(url string) *AppError {
	return &AppError{
		Type:        ErrorTypeNoDescription,
		Severity:    SeverityHard,
		Message:     fmt.Sprintf("no description for %s", url),
		ErrorCode:   "NO_DESCRIPTION",
		UserMessage: MsgNoDescription,
	}
}

// NewRefineError creates a hard error for a failed initial refinement
func NewRefineError(err error) *AppError {
	return &AppError{
		Type:        ErrorTypeRefine,
		Severity:    SeverityHard,
		Message:     "refine returned no usable text",
		ErrorCode:   "REFINE_FAILED",
		UserMessage: MsgRefineFailed,
		Err:         err,
	}
}

// NewModelError creates a soft error for a failed language model call
func NewModelError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeModel,
		Severity:  SeveritySoft,
		Message:   message,
		ErrorCode: errorCode,
		Err:       err,
	}
}

// NewTimeoutError creates a soft error for a bounded wait that ran out
func NewTimeoutError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeTimeout,
		Severity:  SeveritySoft,
		Message:   message,
		ErrorCode: errorCode,
		Err:       err,
	}
}

// NewDeliveryError creates an error for a rejected media delivery
func NewDeliveryError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeDelivery,
		Severity:  SeverityUnexpected,
		Message:   message,
		ErrorCode: errorCode,
		Err:       err,
	}
}

// NewInternalError wraps a recovered panic or other unexpected failure
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeInternal,
		Severity:  SeverityUnexpected,
		Message:   message,
		ErrorCode: "INTERNAL",
		Err:       err,
	}
}
