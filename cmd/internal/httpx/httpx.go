// Package httpx holds the JSON response and request helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error kinds returned in the "error" field of a JSON error body.
const (
	KindValidation         = "VALIDATION_ERROR"
	KindInvalidCredentials = "INVALID_CREDENTIALS"
	KindUnauthorized       = "UNAUTHORIZED"
	KindUsernameExists     = "USERNAME_EXISTS"
	KindSlugExists         = "SLUG_EXISTS"
	KindNotFound           = "NOT_FOUND"
	KindDB                 = "DB_ERROR"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 2 << 20

var (
	ErrEmptyBody    = errors.New("empty body")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrTrailingData = errors.New("extra data after JSON object")
)

// ErrorBody is the JSON shape of every API error.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes v with status. Responses are never cached.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": kind, "details": details}. details may be nil.
func WriteError(w http.ResponseWriter, status int, kind string, details any) {
	WriteJSON(w, status, ErrorBody{Error: kind, Details: details})
}

// DecodeJSON reads exactly one JSON object into dst. Unknown fields and
// trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return ErrBodyTooLarge
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		default:
			return err
		}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}

// DecodeErrorDetail turns a DecodeJSON error into a client-facing message.
func DecodeErrorDetail(err error) string {
	switch {
	case errors.Is(err, ErrEmptyBody):
		return "request body is required"
	case errors.Is(err, ErrBodyTooLarge):
		return "request body too large"
	default:
		return "invalid JSON body"
	}
}

// IsAPIPath reports whether path belongs to the JSON API.
func IsAPIPath(path string) bool {
	return path == "/api" || len(path) >= 5 && path[:5] == "/api/"
}
