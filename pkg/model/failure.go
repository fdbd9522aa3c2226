package model

import "fmt"

// ErrorCode classifies a location failure.
type ErrorCode int

// Codes match the numeric values exposed to application code.
const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case PositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case Timeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Failure is the normalized error delivered to location callbacks.
type Failure struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewFailure builds a Failure, falling back to fallback when msg is empty.
func NewFailure(code ErrorCode, msg, fallback string) Failure {
	if msg == "" {
		msg = fallback
	}
	return Failure{Code: code, Message: msg}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}
