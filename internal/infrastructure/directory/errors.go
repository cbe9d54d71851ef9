package directory

import "fmt"

// FailureKind tags upstream failures so the request boundary can pick
// an outward status per kind instead of collapsing everything into
// "not found".
type FailureKind int

const (
	// KindNotFound: the upstream answered and the resource does not exist.
	KindNotFound FailureKind = iota
	// KindTransient: network errors, timeouts, 5xx. Safe to retry.
	KindTransient
	// KindPermanent: the upstream rejected the request (other 4xx).
	KindPermanent
)

func (k FailureKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// UpstreamError reports a failed call to the user directory or avatar
// source. Status is zero when the request never got a response.
type UpstreamError struct {
	Kind   FailureKind
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("upstream %s (%s): status %d", e.Op, e.Kind, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func kindForStatus(status int) FailureKind {
	switch {
	case status == 404:
		return KindNotFound
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
