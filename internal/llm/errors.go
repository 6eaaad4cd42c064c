package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindRateLimited ErrorKind = "rate_limited"
	KindServer      ErrorKind = "server"
	KindBadRequest  ErrorKind = "bad_request"
	KindTransport   ErrorKind = "transport"
	KindEmpty       ErrorKind = "empty_response"
)

// Error is the failure type returned by every Provider.
type Error struct {
	Provider   ProviderName
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindTransport:
		return true
	}
	return false
}

func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindServer
	case code >= 400:
		return KindBadRequest
	default:
		return KindTransport
	}
}

// classify wraps err from a provider SDK into *Error.
func classify(provider ProviderName, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Provider: provider, Kind: KindTransport, Err: err}
	}

	status := 0
	var oaAPI *openai.APIError
	var oaReq *openai.RequestError
	var anErr *anthropic.Error
	var gErr genai.APIError
	switch {
	case errors.As(err, &oaAPI):
		status = oaAPI.HTTPStatusCode
	case errors.As(err, &oaReq):
		status = oaReq.HTTPStatusCode
	case errors.As(err, &anErr):
		status = anErr.StatusCode
	case errors.As(err, &gErr):
		status = gErr.Code
	}
	if status == 0 {
		return &Error{Provider: provider, Kind: KindTransport, Err: err}
	}
	return &Error{Provider: provider, Kind: kindForStatus(status), StatusCode: status, Err: err}
}

func emptyResponse(provider ProviderName, what string) error {
	return &Error{Provider: provider, Kind: KindEmpty, Err: errors.New(what)}
}
