package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx response from the service.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// newError pulls the human readable message out of an error body. The
// service answers {"detail": "..."}; {"error": "..."} is accepted too.
func newError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil {
		e.Detail = detail
	} else if payload.Error != "" {
		e.Detail = payload.Error
	}
	return e
}

// Message returns the service-provided text for err, or fallback when err
// carries none (network failures, undecodable bodies, non-api errors).
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
