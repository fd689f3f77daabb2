package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// maxRemoteMessage bounds how much of a remote body is carried in an error.
const maxRemoteMessage = 512

// RemoteError is a failure reported by a remote node or oracle. Message is
// the remote text, kept verbatim.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// StatusError turns a non-2xx HTTP response into an error. Rate limiting and
// server errors are retryable; everything else is a plain network error.
// It returns nil for 2xx statuses.
func StatusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	remote := &RemoteError{Status: status, Message: RemoteMessage(body)}
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, walleterr.WithCause(walleterr.ErrNetworkError, remote))
	case status >= 500:
		return WrapRetryable(walleterr.WithCause(walleterr.ErrNetworkError, remote))
	default:
		return walleterr.WithCause(walleterr.ErrNetworkError, remote)
	}
}

// TransportError wraps a failed round trip. Transport failures are retryable
// for reads; callers that broadcast must not retry them.
func TransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRetryable) {
		return err
	}
	return WrapRetryable(walleterr.WithCause(walleterr.ErrNetworkError, err))
}

// RemoteMessage extracts a human message from a remote error body. JSON
// bodies with an "error" or "message" field give that field; anything else
// is returned trimmed.
func RemoteMessage(body []byte) string {
	var doc struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil {
		var s string
		if len(doc.Error) > 0 && json.Unmarshal(doc.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if len(doc.Error) > 0 && json.Unmarshal(doc.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		if doc.Message != "" {
			return doc.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxRemoteMessage {
		msg = msg[:maxRemoteMessage]
	}
	if msg == "" {
		msg = http.StatusText(http.StatusInternalServerError)
	}
	return msg
}
