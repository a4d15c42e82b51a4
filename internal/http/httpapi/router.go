package httpapi

import (
	"net/http"
	"os"
	"strings"

	"eduvision/internal/http/handlers"
	"eduvision/internal/infra"
	"eduvision/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options carries the router's non-handler dependencies.
type Options struct {
	Logger         infra.Logger
	AllowedOrigins []string
	CountryLookup  middleware.CountryLookup
	// StaticDir, when set, is served at "/" for the browser UI bundle.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Country(opts.CountryLookup),
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/generate", app.Generate)

	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		} else {
			opts.Logger.Warn().Str("dir", dir).Msg("static dir not found, UI bundle not served")
		}
	}

	return r
}
