package nivoda

import (
	"net/http"
	"strings"
)

// AuthFailureClassifier decides whether a query outcome indicates an
// authorization failure, driving the basic→bearer fallback. Kept behind an
// interface so the detection can be swapped without touching the resolution
// pipeline.
type AuthFailureClassifier interface {
	IsAuthFailure(status int, envelope *GraphQLResponse) bool
}

// structuredClassifier checks the transport status and GraphQL error codes.
type structuredClassifier struct{}

func (structuredClassifier) IsAuthFailure(status int, envelope *GraphQLResponse) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	if envelope == nil {
		return false
	}
	for _, ge := range envelope.Errors {
		switch ge.Extensions.Code {
		case "UNAUTHENTICATED", "FORBIDDEN", "UNAUTHORIZED":
			return true
		}
	}
	return false
}

// substringClassifier is a last-resort compatibility shim matching known
// error message fragments. Fragile: only consulted when the structured check
// is inconclusive.
type substringClassifier struct {
	fragments []string
}

func (c substringClassifier) IsAuthFailure(_ int, envelope *GraphQLResponse) bool {
	if envelope == nil {
		return false
	}
	for _, ge := range envelope.Errors {
		msg := strings.ToLower(ge.Message)
		for _, f := range c.fragments {
			if strings.Contains(msg, f) {
				return true
			}
		}
	}
	return false
}

// chainClassifier reports an auth failure when any member does.
type chainClassifier []AuthFailureClassifier

func (c chainClassifier) IsAuthFailure(status int, envelope *GraphQLResponse) bool {
	for _, cl := range c {
		if cl.IsAuthFailure(status, envelope) {
			return true
		}
	}
	return false
}

// DefaultAuthFailureClassifier checks structured error codes first and falls
// back to substring sniffing of upstream error messages.
func DefaultAuthFailureClassifier() AuthFailureClassifier {
	return chainClassifier{
		structuredClassifier{},
		substringClassifier{fragments: []string{
			"invalid token",
			"not authenticated",
			"unauthorized",
			"access denied",
			"invalid credentials",
		}},
	}
}
