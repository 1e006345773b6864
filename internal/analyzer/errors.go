package analyzer

import "fmt"

// UpstreamError is an error string returned by the analyzer service itself.
// Its message is surfaced to the user verbatim and never retried.
type UpstreamError struct {
	Detail string
}

func (e *UpstreamError) Error() string {
	return e.Detail
}

// NetworkError is a transport-level failure reaching the service. It is
// surfaced as a generic retryable message; the client never retries on its
// own.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
