package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"salescore/internal/domainerrors"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// readJSON parses the request body with extra=forbid semantics: any field
// not present on data is a hard error, per the reference json.go idiom.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	const maxBytes = 1_048_576 // 1mb
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(data)
}

func (app *application) jsonResponse(w http.ResponseWriter, status int, data any) error {
	type envelope struct {
		Data any `json:"data"`
	}
	return writeJSON(w, status, &envelope{Data: data})
}

// writeError translates a *domainerrors.Error (or any other error, treated
// as internal) to the {"detail": "..."} envelope and matching HTTP status.
func (app *application) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := domainerrors.Translate(err)
	if status >= 500 {
		app.logger.Errorw("request failed", "path", r.URL.Path, "error", err)
	}
	type envelope struct {
		Detail string `json:"detail"`
	}
	_ = writeJSON(w, status, &envelope{Detail: detail})
}
