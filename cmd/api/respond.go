package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"marketmapper/apperr"
)

const maxBodyBytes = 1 << 20

var (
	errBadJSON   = apperr.New(apperr.ErrValidation, "request body must be valid JSON")
	errBadID     = apperr.New(apperr.ErrNotFound, "no record matches this id")
	errNoSession = apperr.New(apperr.ErrUnauthenticated, "please sign in first")
	errBadUser   = apperr.New(apperr.ErrValidation, "choose a valid user")
)

// errorResponse is the JSON rendition of a flash message plus the page the
// client should return to.
type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: len(items)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func statusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrUnauthorized:
		return http.StatusForbidden
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrExternal:
		return http.StatusBadGateway
	case apperr.ErrUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and a message. Internal errors are logged
// and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, redirect string) {
	status := statusFor(err)
	msg := apperr.Message(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "something went wrong, please try again"
	}
	writeJSON(w, status, errorResponse{Error: msg, Redirect: redirect})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadJSON
	}
	return nil
}

// pathID reads a uuid path parameter. Malformed ids cannot match a row, so
// they are reported as not found.
func pathID(r *http.Request, name string) (string, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return "", errBadID
	}
	return id.String(), nil
}

// canonicalID parses a uuid supplied in a request body and returns its
// lower-case form, so id comparisons and orderings match PostgreSQL's.
func canonicalID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", errBadUser
	}
	return id.String(), nil
}

func userIDFromContext(r *http.Request) (string, error) {
	id, ok := r.Context().Value(ctxKeyUserID).(string)
	if !ok || id == "" {
		return "", errNoSession
	}
	return id, nil
}
