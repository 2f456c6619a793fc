package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

type (
	// NetworkError is returned by the catalog client once every attempt of a call has failed.
	// Err is the failure of the final attempt.
	NetworkError struct {
		Op       string
		Attempts int
		Err      error
	}

	// StatusError records a non-2xx response from the catalog API.
	StatusError struct {
		URL        string
		StatusCode int
		Body       string
	}

	// MalformedResponseError means a response decoded but did not have the expected shape.
	MalformedResponseError struct {
		Reason string
	}

	// StorageError wraps a failed read or write of the durable favorites slot.
	StorageError struct {
		Op  string // "read", "write", "decode", "encode"
		Key string
		Err error
	}

	// DetailLoadError wraps the failure to load a single movie record.
	DetailLoadError struct {
		ID  int
		Err error
	}
)

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Unwrap lets callers match every status failure with [ErrAPIRequest].
func (e *StatusError) Unwrap() error {
	return ErrAPIRequest
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s of %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *DetailLoadError) Error() string {
	return fmt.Sprintf("failed to load movie %d: %v", e.ID, e.Err)
}

func (e *DetailLoadError) Unwrap() error {
	return e.Err
}
