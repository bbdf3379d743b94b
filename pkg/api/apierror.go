// Package api provides the RFC 7807 Problem Detail error responses,
// idempotency-key middleware, and capability-header parsing glue that a
// thin HTTP router sits on top of, per spec.md §6's external-interface
// table. The core engines stay router-agnostic; this package is the only
// place that knows about net/http.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/defarm/tracectl/pkg/traceerr"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses must use this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`
	// TraceID links to the distributed trace for this request.
	TraceID string `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteEngineError maps a *traceerr.Error returned by a core engine to
// the HTTP status spec.md §7's taxonomy assigns it and writes it as a
// Problem Detail. Errors of any other type are treated as internal.
func WriteEngineError(w http.ResponseWriter, r *http.Request, err error) {
	te, ok := err.(*traceerr.Error)
	if !ok {
		WriteInternal(w, err)
		return
	}
	switch te.Kind {
	case traceerr.KindValidation:
		WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", te.Message)
	case traceerr.KindNotFound:
		WriteErrorR(w, r, http.StatusNotFound, "Not Found", te.Message)
	case traceerr.KindPermissionDenied:
		WriteErrorR(w, r, http.StatusForbidden, "Forbidden", te.Message)
	case traceerr.KindConflict:
		WriteErrorR(w, r, http.StatusConflict, "Conflict", te.Message)
	case traceerr.KindRateLimit:
		w.Header().Set("Retry-After", fmt.Sprintf("%d", te.RetryAfterSeconds))
		WriteErrorR(w, r, http.StatusTooManyRequests, "Too Many Requests", te.Message)
	case traceerr.KindNotImplemented:
		WriteErrorR(w, r, http.StatusNotImplemented, "Not Implemented", te.Message)
	case traceerr.KindConnection, traceerr.KindWrite, traceerr.KindRead:
		WriteErrorR(w, r, http.StatusBadGateway, "Upstream Error", te.Message)
	default: // KindStorage and anything unrecognized
		WriteInternal(w, te)
	}
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:   fmt.Sprintf("https://defarm.dev/errors/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteErrorR writes an RFC 7807 response enriched with request context
// (trace_id from X-Request-ID, instance from request URI).
func WriteErrorR(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://defarm.dev/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  w.Header().Get("X-Request-ID"),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

// WriteUnauthorized writes a 401 error response.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Authentication required"
	}
	WriteError(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// WriteForbidden writes a 403 error response.
func WriteForbidden(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Insufficient permissions"
	}
	WriteError(w, http.StatusForbidden, "Forbidden", detail)
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail)
}

// WriteMethodNotAllowed writes a 405 error response.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "The HTTP method is not supported for this endpoint")
}

// WriteConflict writes a 409 error response (used for idempotency).
func WriteConflict(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusConflict, "Conflict", detail)
}

// WriteTooManyRequests writes a 429 error response with Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal writes a 500 error response.
// The err parameter is logged but NEVER exposed to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	// Log internally but never expose to client
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}
