package nivoda

import (
	"fmt"
	"strings"
)

// AuthError reports a failed upstream authentication. It is fatal to a whole
// resolution: without a credential no variant can be tried. Never retried
// automatically.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nivoda: authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("nivoda: authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports a network-level failure reaching the upstream.
// Attempt-scoped: one variant failing does not abort the resolution loop.
type TransportError struct {
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("nivoda: request timed out: %v", e.Err)
	}
	return fmt.Sprintf("nivoda: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response that is not parseable as the expected
// GraphQL envelope, including non-success HTTP statuses. Attempt-scoped.
type ProtocolError struct {
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nivoda: unexpected response (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("nivoda: unexpected response (status %d)", e.StatusCode)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ApplicationError reports semantic errors the upstream returned in the
// GraphQL errors array (e.g. a malformed filter). Attempt-scoped.
type ApplicationError struct {
	Errors []GraphQLError
}

func (e *ApplicationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Message
	}
	return "nivoda: upstream reported errors: " + strings.Join(msgs, "; ")
}
