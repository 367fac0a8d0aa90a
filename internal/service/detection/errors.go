package detection

import (
	"errors"
	"fmt"
)

// ErrNoResponse is returned when the request was sent but nothing came back.
var ErrNoResponse = errors.New("no response from server")

// ServerError is returned when the detector answers with an error status.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d - %s", e.StatusCode, e.Message)
}

// RequestError covers every other send failure.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusMessage renders a detection failure as the operator status line.
func StatusMessage(err error) string {
	var serverErr *ServerError
	switch {
	case errors.As(err, &serverErr):
		return fmt.Sprintf("❌ Server Error: %d - %s", serverErr.StatusCode, serverErr.Message)
	case errors.Is(err, ErrNoResponse):
		return "❌ No response from server - Check connectivity"
	default:
		return "❌ Error Sending Frame"
	}
}
