package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/linkedin-optimizer/internal/config"
	"github.com/jonathan/linkedin-optimizer/internal/ingestion"
	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/pipeline"
	"github.com/jonathan/linkedin-optimizer/internal/server/ratelimit"
	"github.com/jonathan/linkedin-optimizer/internal/store"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// scriptedClient returns errs[i] for call i when set, otherwise "output-N".
type scriptedClient struct {
	mu    sync.Mutex
	calls int
	errs  map[int]error
	model string
}

func (c *scriptedClient) Complete(_ context.Context, _ string, _ int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err := c.errs[c.calls]; err != nil {
		return "", err
	}
	return fmt.Sprintf("output-%d", c.calls), nil
}

func (c *scriptedClient) Model() string {
	if c.model != "" {
		return c.model
	}
	return "fake/model"
}

func (c *scriptedClient) Close() error { return nil }

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type factoryCall struct {
	model  string
	apiKey string
}

type testServer struct {
	*Server
	client  *scriptedClient
	dataDir string

	mu    sync.Mutex
	calls []factoryCall
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{client: &scriptedClient{}, dataDir: t.TempDir()}
	srv, err := New(Config{
		App: config.Config{
			APIKey:     "configured-key",
			DataDir:    ts.dataDir,
			StageDelay: time.Millisecond,
		},
		RateLimit: &ratelimit.Config{Enabled: false},
		ClientFactory: func(_ context.Context, cfg *llm.Config, apiKey string) (llm.Client, error) {
			ts.mu.Lock()
			ts.calls = append(ts.calls, factoryCall{model: cfg.Model, apiKey: apiKey})
			ts.mu.Unlock()
			return ts.client, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	ts.Server = srv
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{App: config.Config{Provider: "openai"}})
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestHandleModels(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models   []llm.ModelInfo `json:"models"`
		Selected string          `json:"selected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Models, 4)
	assert.Equal(t, llm.DefaultModel, body.Selected)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "OPTIONS", "/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestProfile_PutAndGet(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "PUT", "/profile", `{"target_role":"Remote ServiceNow Gen AI Developer","headline":"Platform engineer"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, "GET", "/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[profileResponse](t, rec)
	assert.Equal(t, "Platform engineer", body.Profile.Headline)
	assert.False(t, body.Profile.Timestamp.IsZero())
	assert.False(t, body.Empty)
	require.NotNil(t, body.Hints)
	assert.NotEmpty(t, body.Hints.Keywords)
}

func TestProfile_GetEmpty(t *testing.T) {
	ts := newTestServer(t)

	body := decode[profileResponse](t, ts.do(t, "GET", "/profile", ""))
	assert.True(t, body.Empty)
	assert.Nil(t, body.Hints)
	assert.Equal(t, "Not set", body.Preview.TargetRole)
}

func TestProfile_PutInvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "PUT", "/profile", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportJSON_MergesFields(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE", Skills: "Go"})

	rec := ts.do(t, "POST", "/profile/import", "```json\n{\"headline\":\"SRE at Acme\",\"about\":\"I keep things up\"}\n```")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[importResponse](t, rec)
	assert.ElementsMatch(t, []string{"headline", "about"}, body.Applied)

	p := ts.Session().Profile()
	assert.Equal(t, "Remote SRE", p.TargetRole)
	assert.Equal(t, "SRE at Acme", p.Headline)
	assert.Equal(t, "Go", p.Skills)
}

func TestImportJSON_MalformedLeavesProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})

	rec := ts.do(t, "POST", "/profile/import", `{"headline": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(decode[map[string]string](t, rec)["error"], "❌"))
	assert.Equal(t, types.Profile{TargetRole: "Remote SRE"}, ts.Session().Profile())
}

func TestImportHTML(t *testing.T) {
	ts := newTestServer(t)

	page := `<html><body>
<div class="text-body-medium">Staff Engineer</div>
<div class="pv-about__summary-text">Builds platforms.</div>
<span class="pvs-skill-category-entity__name">Go</span>
<span class="pvs-skill-category-entity__name">Kubernetes</span>
</body></html>`
	rec := ts.do(t, "POST", "/profile/import/html", page)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := ts.Session().Profile()
	assert.Equal(t, "Staff Engineer", p.Headline)
	assert.Equal(t, "Go, Kubernetes", p.Skills)
}

func TestImportHTML_NoSections(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/profile/import/html", "<html><body>login</body></html>")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportPDF_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	rec := ts.do(t, "POST", "/profile/import/pdf", buf.String(), "Content-Type", mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportPDF_NotAPDF(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "profile.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("plain text, not a pdf"))
	require.NoError(t, mw.Close())

	rec := ts.do(t, "POST", "/profile/import/pdf", buf.String(), "Content-Type", mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile_SaveAndLoad(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote Data Engineer", About: "Pipelines ✨"})

	rec := ts.do(t, "POST", "/profile/save", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.FileExists(t, filepath.Join(ts.dataDir, store.ProfileFile))

	ts.Session().SetProfile(types.Profile{})
	rec = ts.do(t, "POST", "/profile/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pipelines ✨", ts.Session().Profile().About)
}

func TestProfile_LoadNothingSaved(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/profile/load", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_RestoresSavedProfile(t *testing.T) {
	dir := t.TempDir()
	_, err := store.New(dir).SaveProfile(&types.Profile{TargetRole: "Remote PM"})
	require.NoError(t, err)

	srv, err := New(Config{App: config.Config{DataDir: dir}, RateLimit: &ratelimit.Config{}})
	require.NoError(t, err)
	defer srv.Close()

	assert.Equal(t, "Remote PM", srv.Session().Profile().TargetRole)
}

func TestConnectionTest(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/connection/test", `{"model":"google/gemma-2-9b-it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "output-1", decode[map[string]string](t, rec)["preview"])

	require.Len(t, ts.calls, 1)
	assert.Equal(t, "google/gemma-2-9b-it", ts.calls[0].model)
	assert.Equal(t, "configured-key", ts.calls[0].apiKey)
}

func TestConnectionTest_BearerOverridesKey(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/connection/test", "", "Authorization", "Bearer hf_request")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.calls, 1)
	assert.Equal(t, "hf_request", ts.calls[0].apiKey)
}

func TestConnectionTest_Unauthorized(t *testing.T) {
	ts := newTestServer(t)
	ts.client.errs = map[int]error{1: &llm.CompletionError{Kind: llm.KindUnauthorized, Message: "401"}}

	rec := ts.do(t, "POST", "/connection/test", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "❌ Invalid API token. Check your API token.", body["error"])
	assert.Equal(t, "unauthorized", body["kind"])
}

func TestRun_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote Senior DevOps Engineer"})

	rec := ts.do(t, "POST", "/run", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[runResponse](t, rec)
	assert.Equal(t, pipeline.StateDone, body.State)
	assert.Equal(t, map[string]string{
		"agent1": "output-1",
		"agent2": "output-2",
		"agent3": "output-3",
		"agent4": "output-4",
	}, body.Results)
	assert.NotEmpty(t, body.Activity)
	require.NotEmpty(t, body.SavedTo)
	assert.FileExists(t, body.SavedTo)

	last := ts.Session().LastResult()
	require.NotNil(t, last)
	assert.True(t, last.Complete())
	assert.Len(t, ts.Session().Activity(), len(body.Activity))
}

func TestRun_RequiresTargetRole(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{Headline: "Engineer"})

	rec := ts.do(t, "POST", "/run", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ts.client.callCount())

	// The claim is released after a rejected request.
	assert.True(t, ts.Session().TryStartRun())
	ts.Session().FinishRun()
}

func TestRun_InProgress(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})

	require.True(t, ts.Session().TryStartRun())
	defer ts.Session().FinishRun()

	rec := ts.do(t, "POST", "/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, ts.client.callCount())
}

func TestRun_AbortPersistsNothing(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})
	ts.client.errs = map[int]error{2: &llm.CompletionError{Kind: llm.KindModelLoading, Message: "503"}}

	rec := ts.do(t, "POST", "/run", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 2, ts.client.callCount())
	assert.Equal(t, "model_loading", decode[map[string]string](t, rec)["kind"])
	assert.Equal(t, "20", rec.Header().Get("Retry-After"))

	assert.Nil(t, ts.Session().LastResult())
	files, err := store.New(ts.dataDir).ListResults()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRun_ModelOverride(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})

	rec := ts.do(t, "POST", "/run", `{"model":"meta-llama/Llama-3.2-3B-Instruct"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.calls, 1)
	assert.Equal(t, "meta-llama/Llama-3.2-3B-Instruct", ts.calls[0].model)
}

func TestRunStream_Events(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})

	rec := ts.do(t, "POST", "/run/stream", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Contains(t, out, "event: activity\n")
	assert.Equal(t, 4, strings.Count(out, "event: progress\n"))
	assert.Contains(t, out, "event: complete\n")
	assert.NotContains(t, out, "event: error\n")
}

func TestRunStream_Error(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})
	ts.client.errs = map[int]error{1: &llm.CompletionError{Kind: llm.KindRateLimited, Message: "429"}}

	rec := ts.do(t, "POST", "/run/stream", "")
	out := rec.Body.String()
	assert.Contains(t, out, "event: error\n")
	assert.Contains(t, out, `"kind":"rate_limited"`)
	assert.NotContains(t, out, "event: complete\n")
}

func TestResults_NoneYet(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/results", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "POST", "/export", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/export/download", "").Code)
}

func TestResults_AfterRun(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/run", "").Code)

	rec := ts.do(t, "GET", "/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[types.RunResult](t, rec)
	assert.Equal(t, "output-3", result.Results[types.StageRewriter])

	rec = ts.do(t, "GET", "/results/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[map[string][]store.ResultFile](t, rec)
	assert.Len(t, history["files"], 1)
}

func TestResults_FallsBackToStore(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.store.SaveResult(&types.RunResult{
		Profile:   types.Profile{TargetRole: "Remote SRE"},
		Results:   map[string]string{"agent1": "a", "agent2": "b", "agent3": "c", "agent4": "d"},
		Timestamp: time.Date(2025, 11, 3, 14, 5, 9, 0, time.UTC),
	})
	require.NoError(t, err)

	rec := ts.do(t, "GET", "/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c", decode[types.RunResult](t, rec).Results["agent3"])
}

func TestExportAndDownload(t *testing.T) {
	ts := newTestServer(t)
	ts.now = func() time.Time { return time.Date(2025, 11, 3, 14, 5, 9, 0, time.UTC) }
	ts.Session().SetLastResult(&types.RunResult{
		Profile: types.Profile{TargetRole: "Remote SRE"},
		Results: map[string]string{"agent1": "a", "agent2": "b", "agent3": "REWRITE", "agent4": "REVIEW"},
	})

	rec := ts.do(t, "POST", "/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	path := decode[map[string]string](t, rec)["exported_to"]
	assert.Equal(t, filepath.Join(ts.dataDir, "linkedin_optimized_20251103_140509.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "QUALITY REVIEW:\nREVIEW")

	rec = ts.do(t, "GET", "/export/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="linkedin_optimized_20251103.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "REWRITE", rec.Body.String())
}

func TestGetRun_NoDatabase(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/runs/8d3c5f0e-4b7a-4f5e-9c1d-2a6b7c8d9e0f", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, "GET", "/health", "")

	rec := ts.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `linkedin_optimizer_http_requests_total{code="200",route="GET /health"} 1`)
}

func TestRateLimit_RunEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.rateLimiter.Stop()
	ts.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(10, time.Hour),
	})
	ts.Session().SetProfile(types.Profile{})

	// Burst of two, then throttled. Empty profiles fail fast with 400.
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/run", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/run", "").Code)

	rec := ts.do(t, "POST", "/run", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ErrValidation{Field: "target_role", Message: "required"}, http.StatusBadRequest},
		{"import", &ingestion.ImportError{Source: ingestion.SourceJSON, Message: "Invalid JSON"}, http.StatusBadRequest},
		{"conflict", &ErrRunInProgress{}, http.StatusConflict},
		{"not found", &ErrNotFound{Resource: "run"}, http.StatusNotFound},
		{"unauthorized", &llm.CompletionError{Kind: llm.KindUnauthorized}, http.StatusUnauthorized},
		{"model not found", &llm.CompletionError{Kind: llm.KindModelNotFound}, http.StatusNotFound},
		{"loading", &llm.CompletionError{Kind: llm.KindModelLoading}, http.StatusServiceUnavailable},
		{"rate limited", &llm.CompletionError{Kind: llm.KindRateLimited}, http.StatusTooManyRequests},
		{"timeout", &llm.CompletionError{Kind: llm.KindTimeout}, http.StatusGatewayTimeout},
		{"unknown", &llm.CompletionError{Kind: llm.KindUnknown}, http.StatusBadGateway},
		{"abort wrapping timeout", &pipeline.AbortError{Stage: "agent2", Cause: &llm.CompletionError{Kind: llm.KindTimeout}}, http.StatusGatewayTimeout},
		{"abort on marker", &pipeline.AbortError{Stage: "agent2", Message: "❌ Error"}, http.StatusBadGateway},
		{"store", &store.StoreError{Op: "write", Cause: errors.New("disk full")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "🔄 Model is loading. Wait 20-30 seconds and try again.",
		UserMessage(&pipeline.AbortError{Stage: "agent1", Message: "x", Cause: &llm.CompletionError{Kind: llm.KindModelLoading}}))
	assert.Equal(t, "❌ Error: marker", UserMessage(&pipeline.AbortError{Stage: "agent1", Message: "❌ Error: marker"}))
	assert.Equal(t, "❌ Invalid JSON", UserMessage(&ingestion.ImportError{Source: ingestion.SourceJSON, Message: "Invalid JSON"}))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}

func TestExtractClientID(t *testing.T) {
	s := &Server{}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", s.extractClientID(req))

	req.RemoteAddr = "10.0.0.1"
	assert.Equal(t, "10.0.0.1", s.extractClientID(req))
}

func TestRun_UnknownModelRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.Session().SetProfile(types.Profile{TargetRole: "Remote SRE"})

	rec := ts.do(t, "POST", "/run", `{"model":"someone/not-in-catalogue"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "unknown model")
	assert.Equal(t, 0, ts.client.callCount())

	// The claim is released, so a valid run can follow.
	rec = ts.do(t, "POST", "/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrResponse_RetryAfterOnlyForTransientFailures(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.errResponse(rec, &llm.CompletionError{Kind: llm.KindRateLimited, Message: "429"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	ts.errResponse(rec, &llm.CompletionError{Kind: llm.KindUnauthorized, Message: "401"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
}
