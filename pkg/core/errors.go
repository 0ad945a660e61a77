package core

import (
	"fmt"
	"time"
)

// Error is the base error for all Bud Foundry SDK failures. It carries a
// machine-readable code and a free-form context map alongside the message.
type Error struct {
	Type    ErrorType      `json:"type"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error wrapping.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrConnection    ErrorType = "connection_error"
	ErrTimeout       ErrorType = "timeout_error"
	ErrReconnect     ErrorType = "reconnect_error"
	ErrAPI           ErrorType = "api_error"
	ErrSTT           ErrorType = "stt_error"
	ErrTranscription ErrorType = "transcription_error"
	ErrTTS           ErrorType = "tts_error"
	ErrSynthesis     ErrorType = "synthesis_error"
	ErrConfiguration ErrorType = "configuration_error"
)

// ConnectionError reports that the transport could not be established or was
// lost. Use errors.As to distinguish it from canonical API errors.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("connection to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewConnectionError creates a ConnectionError for the given URL.
func NewConnectionError(url string, cause error) *ConnectionError {
	return &ConnectionError{URL: url, Err: cause}
}

// TimeoutError reports that an operation exceeded its deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
	}
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

// NewTimeoutError creates a TimeoutError for the named operation.
func NewTimeoutError(op string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, Timeout: timeout}
}

// ReconnectError reports an exhausted reconnect backoff sequence.
type ReconnectError struct {
	Attempts int
	LastErr  error
}

func (e *ReconnectError) Error() string {
	return fmt.Sprintf("failed to reconnect after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ReconnectError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.LastErr
}

// APIError reports a REST call that returned a 4xx/5xx status.
type APIError struct {
	StatusCode int
	Body       any
	URL        string
	Method     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d on %s %s: %s", e.StatusCode, e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("api error %d on %s %s", e.StatusCode, e.Method, e.URL)
}

// NewAPIError builds an APIError from a response, extracting a message from
// common gateway error body shapes.
func NewAPIError(statusCode int, body any, url, method string) *APIError {
	message := ""
	if m, ok := body.(map[string]any); ok {
		if s, ok := m["message"].(string); ok {
			message = s
		} else if s, ok := m["error"].(string); ok {
			message = s
		}
	} else if s, ok := body.(string); ok {
		message = s
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", statusCode)
	}
	return &APIError{
		StatusCode: statusCode,
		Body:       body,
		URL:        url,
		Method:     method,
		Message:    message,
	}
}

// NewSTTError creates a speech-to-text error.
func NewSTTError(message, provider string, cause error) *Error {
	return &Error{
		Type:    ErrSTT,
		Message: message,
		Code:    "STT_ERROR",
		Context: map[string]any{"provider": provider},
		Cause:   cause,
	}
}

// NewTranscriptionError creates a transcription failure error. Source names
// the audio file or stream being transcribed.
func NewTranscriptionError(message, source string, cause error) *Error {
	return &Error{
		Type:    ErrTranscription,
		Message: message,
		Code:    "TRANSCRIPTION_ERROR",
		Context: map[string]any{"source": source},
		Cause:   cause,
	}
}

// NewTTSError creates a text-to-speech error.
func NewTTSError(message, provider string, cause error) *Error {
	return &Error{
		Type:    ErrTTS,
		Message: message,
		Code:    "TTS_ERROR",
		Context: map[string]any{"provider": provider},
		Cause:   cause,
	}
}

// NewSynthesisError creates a speech synthesis failure error.
func NewSynthesisError(message, voice string, textLength int) *Error {
	return &Error{
		Type:    ErrSynthesis,
		Message: message,
		Code:    "SYNTHESIS_ERROR",
		Context: map[string]any{"voice": voice, "text_length": textLength},
	}
}

// NewConfigurationError creates an invalid configuration error.
func NewConfigurationError(message, field string) *Error {
	return &Error{
		Type:    ErrConfiguration,
		Message: message,
		Code:    "CONFIG_ERROR",
		Context: map[string]any{"field": field},
	}
}

// NewGatewayError creates an error from a gateway error frame.
func NewGatewayError(message, code string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
		Code:    code,
	}
}
