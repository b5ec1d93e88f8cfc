package common

import (
	"errors"
	"maps"

	"github.com/arterberry/metaview-core/logging"
)

// StreamError represents stream-related errors with integrated logging
type StreamError struct {
	Type    StreamType     `json:"type"`
	URL     string         `json:"url"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Fields  logging.Fields `json:"fields,omitempty"`
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Log logs this error using the global logger
func (e *StreamError) Log() {
	e.LogWith(logging.GetGlobalLogger())
}

// LogWith logs this error using a specific logger
func (e *StreamError) LogWith(logger logging.Logger) {
	fields := logging.Fields{
		"stream_type": string(e.Type),
		"url":         e.URL,
		"error_code":  e.Code,
	}

	maps.Copy(fields, e.Fields)

	logger.Error(e.Cause, e.Message, fields)
}

// Common error codes
const (
	ErrCodeConnection    = "CONNECTION_FAILED"
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeHTTPStatus    = "HTTP_STATUS"
	ErrCodeNotAPlaylist  = "NOT_A_PLAYLIST"
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeDecoding      = "DECODING_FAILED"
	ErrCodeUnsupported   = "UNSUPPORTED_STREAM"
)

// NewStreamError creates a new stream error
func NewStreamError(streamType StreamType, url, code, message string, cause error) *StreamError {
	return &StreamError{
		Type:    streamType,
		URL:     url,
		Code:    code,
		Message: message,
		Cause:   cause,
		Fields:  make(logging.Fields),
	}
}

// NewStreamErrorWithFields creates a new stream error with additional fields
func NewStreamErrorWithFields(streamType StreamType, url, code, message string, cause error, fields logging.Fields) *StreamError {
	return &StreamError{
		Type:    streamType,
		URL:     url,
		Code:    code,
		Message: message,
		Cause:   cause,
		Fields:  fields,
	}
}

// ErrorCode extracts the StreamError code from anywhere in err's chain, or
// "" for other errors.
func ErrorCode(err error) string {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	return ErrorCode(err) == ErrCodeTimeout
}

// IsNotAPlaylist reports whether err marks a body missing the #EXTM3U header.
func IsNotAPlaylist(err error) bool {
	return ErrorCode(err) == ErrCodeNotAPlaylist
}
