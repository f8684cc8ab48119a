// Package response writes the JSON envelope shared by handlers and
// middleware.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hugh/rateboard/internal/api/dto"
	"github.com/hugh/rateboard/internal/apperr"
)

func JSON(w http.ResponseWriter, status int, body dto.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, dto.Envelope{Success: true, Data: data})
}

// Paginated writes a list page.
func Paginated(w http.ResponseWriter, data interface{}, p *dto.Pagination) {
	JSON(w, http.StatusOK, dto.Envelope{Success: true, Data: data, Pagination: p})
}

// Fail writes an error envelope with an explicit status, for failures that
// have no apperr kind such as rate limiting.
func Fail(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, dto.Envelope{
		Error: &dto.ErrorBody{Code: code, Message: message},
	})
}

// Error maps err through the error taxonomy. Internal causes are logged and
// never sent to the client.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ErrorWithData(w, r, logger, err, nil)
}

// ErrorWithData is Error with a data payload, used when part of the work
// committed before the failure.
func ErrorWithData(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, data interface{}) {
	e := apperr.From(err)
	status := e.Kind.HTTPStatus()

	if logger != nil {
		attrs := []any{
			"code", e.Code,
			"status", status,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
		}
		if e.Err != nil {
			attrs = append(attrs, "error", e.Err)
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", attrs...)
		} else {
			logger.Debug("request rejected", attrs...)
		}
	}

	JSON(w, status, dto.Envelope{
		Data: data,
		Error: &dto.ErrorBody{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Fields,
		},
	})
}

// Decode reads a JSON body into v and reports a client error on failure.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, apperr.CodeInvalidBody, "Invalid request body")
	}
	return nil
}
