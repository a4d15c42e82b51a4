package handlers

import (
	"encoding/json"
	"net/http"

	"eduvision/internal/imagegen"
	"eduvision/internal/infra"
)

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Generator imagegen.Generator
	KeyCount  int
	Logger    *infra.Logger
}

func NewApp(generator imagegen.Generator, keyCount int, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{Generator: generator, KeyCount: keyCount, Logger: logger}
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string, details any) {
	a.json(w, status, errorResponse{Error: message, Code: code, Details: details})
}
