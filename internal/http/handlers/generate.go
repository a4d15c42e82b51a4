package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"eduvision/internal/imagegen"
)

const maxGenerateBodyBytes = 1 << 20

// Generate handles POST /generate: validate, create the upstream job with key
// failover, poll it, and reply with {imageUrl, explanation}.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGenerateBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_request", "Invalid request body", nil)
		return
	}

	req, err := imagegen.ParseRequest(body)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	result, err := a.Generator.Generate(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

// fail writes a classified pipeline error as-is; anything else is logged and
// reported as a bare internal error.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := a.requestLogger(r)
	var genErr *imagegen.Error
	if errors.As(err, &genErr) {
		logger.Warn().Err(err).Str("code", genErr.Code).Int("status", genErr.Status).Msg("generate: request failed")
		a.error(w, genErr.Status, genErr.Code, genErr.Message, genErr.Details)
		return
	}
	logger.Error().Err(err).Msg("generate: internal error")
	a.error(w, http.StatusInternalServerError, "internal", "Internal server error", nil)
}

func (a *App) requestLogger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return a.Logger
}
