package telegram

import "fmt"

// APIError is a request the Bot API received and rejected.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int // seconds, set on 429 responses
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: error %d: %s", e.Method, e.Code, e.Description)
}

// NetworkError is a failure to reach the Bot API or to read its response.
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("telegram %s: network error: %v", e.Method, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out its deadline.
func (e *NetworkError) Timeout() bool { return isTimeout(e.Err) }
