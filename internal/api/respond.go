package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kssmani94-hub/CPL6/internal/domain"
)

// respondJSON writes v as a JSON response with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response", slog.Any("error", err))
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// respondError maps a domain error to an HTTP response. Errors that
// did not come from the domain become opaque 500s.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal("internal error", err)
	}
	if appErr.Status >= 500 {
		s.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}

	var body errorBody
	body.Error.Code = appErr.Code
	body.Error.Message = appErr.Message
	if appErr.Status >= 500 {
		body.Error.Message = "internal error"
	}
	s.respondJSON(w, appErr.Status, body)
}

// decodeJSON parses the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation("invalid request body: " + err.Error())
	}
	return nil
}
