package upstream

import "fmt"

// NetworkError wraps a transport-level failure (timeout, connection refused,
// proxy failure). Transient; callers log and retry on the next sweep.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from the shop API. The body sample is
// kept for the auth-expiry heuristic and for logs.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

func bodySample(body []byte) string {
	sample := string(body)
	if len(sample) > 200 {
		sample = sample[:200] + "..."
	}
	return sample
}
