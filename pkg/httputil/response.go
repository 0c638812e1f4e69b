// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrorBody is the JSON shape of every error the server writes itself.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, errCode, message string) {
	WriteJSON(w, r, status, ErrorBody{Error: errCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, r *http.Request, status int, errCode, message string, details any) {
	WriteJSON(w, r, status, ErrorBody{Error: errCode, Message: message, Details: details})
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, r *http.Request, errCode, message string, details any) {
	WriteErrorWithDetails(w, r, http.StatusNotFound, errCode, message, details)
}

// WriteBadGateway writes a 502 error response.
func WriteBadGateway(w http.ResponseWriter, r *http.Request, errCode, message string) {
	WriteError(w, r, http.StatusBadGateway, errCode, message)
}
