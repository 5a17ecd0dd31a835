package registrar

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrNonceCollectionStalled = errors.New("nonce collection stalled, the page carried no nonce")

// TransportError is returned for every response that is not a 200.
// Redirects are never followed, so a 3xx lands here with its Location.
type TransportError struct {
	Status   int
	Location string
	URL      string
}

func (e *TransportError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: unexpected status %d (location: %s)", e.URL, e.Status, e.Location)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Status)
}

// IsLoginRedirect reports whether the server sent the client back to a
// login page, which happens once the session cookies have expired.
func (e *TransportError) IsLoginRedirect() bool {
	if e.Status < http.StatusMultipleChoices || e.Status >= http.StatusBadRequest {
		return false
	}
	location := strings.ToLower(e.Location)
	return strings.Contains(location, "login") || strings.Contains(location, "logon")
}

// ServerRejection carries the error text the registrar rendered on an
// otherwise successful page, e.g. a full class or a time conflict.
type ServerRejection struct {
	Message string
}

func (e *ServerRejection) Error() string {
	return "registrar rejected the request: " + e.Message
}
