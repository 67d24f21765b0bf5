// Package api holds the response envelope shared by the HTTP handlers and the
// client pipeline. Every endpoint answers {success, data?, count?, error?}.
package api

import (
	"encoding/json"
	"net/http"

	"staffdesk/internal/models"
)

type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthResult is the login/register payload. The token and user sit at the top
// level rather than under data.
type AuthResult struct {
	Success bool           `json:"success"`
	Token   string         `json:"token,omitempty"`
	User    models.Profile `json:"user"`
	Error   string         `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope[any]{Success: true, Data: data})
}

type list[T any] struct {
	Success bool `json:"success"`
	Data    []T  `json:"data"`
	Count   int  `json:"count"`
}

func WriteList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, list[T]{Success: true, Data: items, Count: len(items)})
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope[any]{Success: false, Error: msg})
}
