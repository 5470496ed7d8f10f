package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/briefing-buddy/backend/internal/analysis/reply"
)

// ErrorKind classifies a failed webhook call.
type ErrorKind string

const (
	KindNetwork  ErrorKind = "network"
	KindTimeout  ErrorKind = "timeout"
	KindServer   ErrorKind = "server"
	KindNotFound ErrorKind = "not_found"
	KindClient   ErrorKind = "client"
)

// Error describes a failed call. StatusCode and Body are set for HTTP errors.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("webhook %s error: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("webhook %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("webhook %s error", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify returns the kind of err. Errors that did not come from this
// package count as network failures.
func Classify(err error) ErrorKind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindNetwork
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusError(code int, body []byte) *Error {
	kind := KindClient
	switch {
	case code >= 500:
		kind = KindServer
	case code == 404:
		kind = KindNotFound
	}
	return &Error{Kind: kind, StatusCode: code, Body: body}
}

func transportError(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

const genericFailure = "Sorry, there was an error processing your request."

// UserMessage maps a failed call to the text shown in the transcript.
func UserMessage(err error) string {
	var werr *Error
	errors.As(err, &werr)

	switch Classify(err) {
	case KindTimeout:
		return "The request timed out. Please try again later."
	case KindNetwork:
		return genericFailure + " Please check your internet connection."
	case KindServer:
		return genericFailure + " The server is currently unavailable. Please try again later."
	case KindNotFound:
		return genericFailure + " The webhook endpoint could not be found."
	case KindClient:
		if werr != nil && reply.ContainsLengthLimit(string(werr.Body)) {
			return reply.LengthLimitText
		}
		return genericFailure
	default:
		return genericFailure
	}
}
