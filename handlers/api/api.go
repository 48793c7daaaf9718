// Package api holds the response helpers shared by the REST handlers.
package api

import (
	"errors"
	"net/http"

	"canvas-editor/core"

	"github.com/go-chi/render"
)

// Error writes a JSON error body with the given status.
func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// StatusFor maps a store error to an HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
