package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/linkedin-optimizer/internal/ingestion"
	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/store"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

const (
	maxImportBody = 1 << 20  // 1MB for pasted JSON and saved HTML
	maxPDFUpload  = 10 << 20 // 10MB
)

// profileResponse is the profile view returned by the profile endpoints
type profileResponse struct {
	Profile types.Profile        `json:"profile"`
	Preview types.ProfilePreview `json:"preview"`
	Hints   *types.KeywordHints  `json:"hints,omitempty"`
	Empty   bool                 `json:"empty"`
}

func newProfileResponse(p types.Profile) profileResponse {
	return profileResponse{
		Profile: p,
		Preview: p.Preview(),
		Hints:   types.HintsForRole(p.TargetRole),
		Empty:   p.IsEmpty(),
	}
}

// importResponse reports which fields an import changed
type importResponse struct {
	Source     string          `json:"source"`
	Applied    []string        `json:"applied"`
	Characters int             `json:"characters,omitempty"`
	Preview    string          `json:"preview,omitempty"`
	Profile    profileResponse `json:"profile"`
}

// handleModels returns the model catalogue and the configured model
func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"models":   llm.AvailableModels(),
		"selected": s.cfg.SelectedModel(),
		"provider": s.cfg.Provider,
	})
}

// handleGetProfile returns the session profile
func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, newProfileResponse(s.session.Profile()))
}

// handlePutProfile replaces the session profile with manually entered fields
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p types.Profile
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImportBody)).Decode(&p); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	p.Timestamp = s.now()
	s.session.SetProfile(p)
	s.jsonResponse(w, http.StatusOK, newProfileResponse(p))
}

// handleImportJSON merges a pasted browser-console JSON blob into the profile
func (s *Server) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := ingestion.ParseJSON(string(body))
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.applyImport(w, result)
}

// handleImportHTML parses a saved LinkedIn profile page
func (s *Server) handleImportHTML(w http.ResponseWriter, r *http.Request) {
	result, err := ingestion.ParseHTML(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.applyImport(w, result)
}

// handleImportPDF parses an uploaded LinkedIn PDF export from the "file" form field
func (s *Server) handleImportPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPDFUpload)
	if err := r.ParseMultipartForm(maxPDFUpload); err != nil {
		s.errResponse(w, &ErrValidation{Field: "file", Message: "expected a multipart upload of at most 10MB"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.errResponse(w, &ErrValidation{Field: "file", Message: "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := ingestion.ParsePDFBytes(data)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.applyImport(w, result)
}

func (s *Server) applyImport(w http.ResponseWriter, result *ingestion.Result) {
	var applied []string
	p := s.session.UpdateProfile(func(p *types.Profile) {
		applied = result.Apply(p)
		p.Timestamp = s.now()
	})

	log.Printf("[import] %s import applied %d fields", result.Source, len(applied))
	s.jsonResponse(w, http.StatusOK, importResponse{
		Source:     result.Source,
		Applied:    applied,
		Characters: result.Characters,
		Preview:    result.Preview,
		Profile:    newProfileResponse(p),
	})
}

// handleSaveProfile writes the session profile to the data directory
func (s *Server) handleSaveProfile(w http.ResponseWriter, _ *http.Request) {
	p := s.session.UpdateProfile(stamp)
	path, err := s.store.SaveProfile(&p)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"saved_to": path})
}

// handleLoadProfile replaces the session profile with the saved one
func (s *Server) handleLoadProfile(w http.ResponseWriter, _ *http.Request) {
	p, err := s.store.LoadProfile()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if p == nil {
		s.errResponse(w, &ErrNotFound{Resource: "saved profile"})
		return
	}

	s.session.SetProfile(*p)
	s.jsonResponse(w, http.StatusOK, newProfileResponse(*p))
}

// handleConnectionTest sends a tiny prompt to the selected model
func (s *Server) handleConnectionTest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	client, err := s.client(r.Context(), req.Model, s.apiKey(r))
	if err != nil {
		s.errResponse(w, err)
		return
	}
	defer client.Close()

	preview, err := llm.TestConnection(r.Context(), client)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"model":   client.Model(),
		"preview": preview,
	})
}

// handleResults returns the last completed run, falling back to the newest stored one
func (s *Server) handleResults(w http.ResponseWriter, _ *http.Request) {
	result, err := s.lastResult()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if result == nil {
		s.errResponse(w, &ErrNotFound{Resource: "results"})
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleResultsHistory lists stored result files and, when configured, database runs
func (s *Server) handleResultsHistory(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListResults()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if files == nil {
		files = []store.ResultFile{}
	}

	response := map[string]any{"files": files}
	if s.db != nil {
		runs, err := s.db.ListRuns(r.Context(), 0)
		if err != nil {
			s.errResponse(w, err)
			return
		}
		response["runs"] = runs
	}
	s.jsonResponse(w, http.StatusOK, response)
}

// handleGetRun returns one run from the database
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorResponse(w, http.StatusNotImplemented, "run history database is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errResponse(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	result, err := s.db.GetRun(r.Context(), id)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if result == nil {
		s.errResponse(w, &ErrNotFound{Resource: "run"})
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleExport writes the text artifact for the last run to the data directory
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	result, err := s.lastResult()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if result == nil {
		s.errResponse(w, &ErrNotFound{Resource: "results"})
		return
	}

	path, err := s.store.Export(result, s.now())
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"exported_to": path})
}

// handleDownload returns the rewritten profile as a text attachment
func (s *Server) handleDownload(w http.ResponseWriter, _ *http.Request) {
	result, err := s.lastResult()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if result == nil {
		s.errResponse(w, &ErrNotFound{Resource: "results"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", store.DownloadName(s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, store.DownloadContent(result))
}

// lastResult returns the session's last run or the newest stored result.
func (s *Server) lastResult() (*types.RunResult, error) {
	if result := s.session.LastResult(); result != nil {
		return result, nil
	}
	return s.store.LatestResult()
}

// client builds a completion client, optionally bound to a different model.
func (s *Server) client(ctx context.Context, model, apiKey string) (llm.Client, error) {
	if apiKey == "" {
		return nil, &llm.CompletionError{Kind: llm.KindUnauthorized, Message: "no API key configured"}
	}
	cfg := s.cfg.LLMConfig()
	if model != "" {
		if cfg.Provider == llm.ProviderHuggingFace {
			if _, ok := llm.LookupModel(model); !ok {
				return nil, &ErrValidation{Field: "model", Message: fmt.Sprintf("unknown model %q; see GET /models", model)}
			}
		}
		cfg = cfg.WithModel(model)
	}
	return s.newClient(ctx, cfg, apiKey)
}

// runRequest is the optional body of run and connection test requests
type runRequest struct {
	Model string `json:"model,omitempty"`
}

// decodeRunRequest reads an optional JSON body; an empty body is allowed.
func decodeRunRequest(r *http.Request) (runRequest, error) {
	var req runRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxImportBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}
