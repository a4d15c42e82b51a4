package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status      string `json:"status"`
	Credentials int    `json:"credentials"`
}

// Health reports liveness and the size of the loaded key pool. Keys are never
// echoed.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{Status: "ok", Credentials: a.KeyCount})
}
