package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduvision/internal/imagegen"
	"eduvision/internal/providers/krea"
)

type stubGenerator struct {
	calls  int32
	result *imagegen.GenerationResult
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, req imagegen.GenerationRequest) (*imagegen.GenerationResult, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.result, s.err
}

func postGenerate(t *testing.T, app *App, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Generate(rec, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return rec, payload
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	gen := &stubGenerator{}
	app := NewApp(gen, 1, nil)

	for _, body := range []string{`{"prompt":"   "}`, `{}`, `{"prompt":7}`} {
		rec, payload := postGenerate(t, app, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Prompt is required", payload["error"])
		assert.Equal(t, "invalid_request", payload["code"])
	}
	assert.Zero(t, atomic.LoadInt32(&gen.calls))
}

func TestGenerateSuccess(t *testing.T) {
	gen := &stubGenerator{result: &imagegen.GenerationResult{ImageURL: "https://cdn.test/a.png", Explanation: "why"}}
	app := NewApp(gen, 1, nil)

	rec, payload := postGenerate(t, app, `{"prompt":"the moon phases"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn.test/a.png", payload["imageUrl"])
	assert.Equal(t, "why", payload["explanation"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestGenerateUnexpectedErrorIsOpaque(t *testing.T) {
	gen := &stubGenerator{err: assertError("database password is hunter2")}
	app := NewApp(gen, 1, nil)

	rec, payload := postGenerate(t, app, `{"prompt":"the moon phases"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", payload["error"])
	assert.NotContains(t, rec.Body.String(), "hunter2")
	_, hasDetails := payload["details"]
	assert.False(t, hasDetails)
}

func TestGenerateBodyTooLarge(t *testing.T) {
	app := NewApp(&stubGenerator{}, 1, nil)
	body := `{"prompt":"` + strings.Repeat("a", maxGenerateBodyBytes) + `"}`
	rec, payload := postGenerate(t, app, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", payload["code"])
}

type assertError string

func (e assertError) Error() string { return string(e) }

// fakeKrea is an in-memory stand-in for the upstream job API.
type fakeKrea struct {
	mu          sync.Mutex
	createByKey map[string]func(w http.ResponseWriter)
	statuses    []string
	createKeys  []string
	pollKeys    []string
}

func (f *fakeKrea) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/generate/image/bfl/flux-1-dev":
		f.createKeys = append(f.createKeys, key)
		if handler, ok := f.createByKey[key]; ok {
			handler(w)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/jobs/"):
		f.pollKeys = append(f.pollKeys, key)
		idx := len(f.pollKeys) - 1
		if idx >= len(f.statuses) {
			_, _ = w.Write([]byte(`{"status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(f.statuses[idx]))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newPipelineApp(t *testing.T, upstream *fakeKrea, keys []string, maxAttempts int) *App {
	t.Helper()
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	client := krea.NewClient(krea.Options{BaseURL: server.URL, HTTPClient: server.Client()})
	pipeline, err := imagegen.NewPipeline(imagegen.Options{
		Client:          client,
		Keys:            keys,
		PollInterval:    0,
		MaxPollAttempts: maxAttempts,
	})
	require.NoError(t, err)
	return NewApp(pipeline, len(keys), nil)
}

func TestGenerateEndToEndFailover(t *testing.T) {
	upstream := &fakeKrea{
		createByKey: map[string]func(w http.ResponseWriter){
			"key-1": respond(http.StatusPaymentRequired, `{"error":"Insufficient balance"}`),
			"key-2": respond(http.StatusOK, `{"job_id":"job-7"}`),
		},
		statuses: []string{
			`{"status":"queued"}`,
			`{"status":"processing"}`,
			`{"status":"completed","result":{"urls":["https://cdn.krea.test/final.png"]}}`,
		},
	}
	app := newPipelineApp(t, upstream, []string{"key-1", "key-2", "key-3"}, 40)

	rec, payload := postGenerate(t, app, `{"prompt":"  how volcanoes erupt ","width":512}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://cdn.krea.test/final.png", payload["imageUrl"])
	assert.Equal(t, imagegen.Explain("how volcanoes erupt"), payload["explanation"])
	assert.Equal(t, []string{"key-1", "key-2"}, upstream.createKeys)
	assert.Equal(t, []string{"key-2", "key-2", "key-2"}, upstream.pollKeys)
}

func TestGenerateEndToEndErrors(t *testing.T) {
	tests := []struct {
		name        string
		creates     map[string]func(w http.ResponseWriter)
		statuses    []string
		wantStatus  int
		wantError   string
		wantCode    string
		wantDetails bool
	}{
		{
			name:       "all keys exhausted",
			creates:    map[string]func(w http.ResponseWriter){"key-1": respond(http.StatusPaymentRequired, `{"message":"insufficient credits"}`)},
			wantStatus: http.StatusPaymentRequired,
			wantError:  "All API keys exhausted or invalid.",
			wantCode:   "credentials_exhausted",
		},
		{
			name:        "unclassified rejection keeps upstream status",
			creates:     map[string]func(w http.ResponseWriter){"key-1": respond(http.StatusUnprocessableEntity, `{"error":"prompt blocked by safety filter"}`)},
			wantStatus:  http.StatusUnprocessableEntity,
			wantError:   "Krea API error",
			wantCode:    "upstream_rejected",
			wantDetails: true,
		},
		{
			name:        "missing job id",
			creates:     map[string]func(w http.ResponseWriter){"key-1": respond(http.StatusOK, `{"ok":true}`)},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Job creation failed",
			wantCode:    "job_creation_failed",
			wantDetails: true,
		},
		{
			name:        "generation failed",
			creates:     map[string]func(w http.ResponseWriter){"key-1": respond(http.StatusOK, `{"job_id":"j"}`)},
			statuses:    []string{`{"status":"processing"}`, `{"status":"FAILED","error":"nsfw"}`},
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Image generation failed",
			wantCode:    "generation_failed",
			wantDetails: true,
		},
		{
			name:       "timed out",
			creates:    map[string]func(w http.ResponseWriter){"key-1": respond(http.StatusOK, `{"job_id":"j"}`)},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Generation timed out",
			wantCode:   "generation_timeout",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			upstream := &fakeKrea{createByKey: tc.creates, statuses: tc.statuses}
			app := newPipelineApp(t, upstream, []string{"key-1"}, 3)

			rec, payload := postGenerate(t, app, `{"prompt":"tides"}`)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantError, payload["error"])
			assert.Equal(t, tc.wantCode, payload["code"])
			_, hasDetails := payload["details"]
			assert.Equal(t, tc.wantDetails, hasDetails)
		})
	}
}

func TestHealth(t *testing.T) {
	app := NewApp(&stubGenerator{}, 3, nil)
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","credentials":3}`, rec.Body.String())
}
