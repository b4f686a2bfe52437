// Package httpx adapts error returning handlers and middleware to net/http.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-json-experiment/json"
	"golang.org/x/exp/slog"
)

// Error wraps err so HandlerFunc answers with code.
func Error(code int, err error) error {
	return &StatusError{Code: code, Err: err}
}

// StatusError is an error carrying the HTTP status to respond with.
type StatusError struct {
	Code int
	Err  error
}

func (se *StatusError) Error() string { return se.Err.Error() }
func (se *StatusError) Unwrap() error { return se.Err }

// Status returns the HTTP status code.
func (se *StatusError) Status() int { return se.Code }

// Logger is implemented by handler environments.
type Logger interface {
	Log() *slog.Logger
}

// HandlerFunc adapts a function that returns an error to an http.HandlerFunc.
// A *StatusError is written with its code, any other error as a 500.
func HandlerFunc[E Logger](envFn func(r *http.Request) E, fn func(E, http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := envFn(r)
		err := fn(env, w, r)
		if err == nil {
			return
		}
		log := env.Log().With("method", r.Method, "path", r.URL.Path)
		status, msg := http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
		if se := new(StatusError); errors.As(err, &se) {
			status, msg = se.Status(), se.Error()
			log.Info("request failed", "status", status, "err", err)
		} else {
			log.Error("request failed", "status", status, "err", err)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		json.MarshalFull(w, map[string]any{"error": msg})
	}
}
