package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/pipeline"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// persistTimeout bounds writing a finished run to the database.
const persistTimeout = 10 * time.Second

// runResponse is returned by POST /run and carried by the SSE complete event
type runResponse struct {
	RunID    string                `json:"run_id"`
	State    pipeline.State        `json:"state"`
	Trace    []pipeline.State      `json:"trace"`
	Model    string                `json:"model"`
	Results  map[string]string     `json:"results"`
	SavedTo  string                `json:"saved_to,omitempty"`
	Activity []types.ActivityEntry `json:"activity"`
}

// handleRun runs the four stages synchronously against the session profile
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	client, profile, ok := s.beginRun(w, r)
	if !ok {
		return
	}
	defer s.session.FinishRun()
	defer client.Close()

	resp, err := s.executeRun(r.Context(), client, profile, nil, nil)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleRunStream runs the stages and streams activity and progress as Server-Sent Events
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	client, profile, ok := s.beginRun(w, r)
	if !ok {
		return
	}
	defer s.session.FinishRun()
	defer client.Close()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp, err := s.executeRun(r.Context(), client, profile, sse.WriteActivity, sse.WriteProgress)
	if err != nil {
		sse.WriteError(UserMessage(err), string(errorKind(err)))
		return
	}
	sse.WriteComplete(*resp)
}

// beginRun claims the session and prepares the client. On failure it has already
// written the response and released the claim.
func (s *Server) beginRun(w http.ResponseWriter, r *http.Request) (llm.Client, types.Profile, bool) {
	req, err := decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return nil, types.Profile{}, false
	}

	if !s.session.TryStartRun() {
		s.errResponse(w, &ErrRunInProgress{})
		return nil, types.Profile{}, false
	}

	profile := s.session.Profile()
	if err := profile.Validate(); err != nil {
		s.session.FinishRun()
		s.errResponse(w, &ErrValidation{Field: types.FieldTargetRole, Message: "set a target role before running"})
		return nil, types.Profile{}, false
	}

	client, err := s.client(r.Context(), req.Model, s.apiKey(r))
	if err != nil {
		s.session.FinishRun()
		s.errResponse(w, err)
		return nil, types.Profile{}, false
	}
	return client, profile, true
}

// executeRun drives the pipeline and persists a successful result.
func (s *Server) executeRun(
	ctx context.Context,
	client llm.Client,
	profile types.Profile,
	onActivity func(types.ActivityEntry),
	onProgress pipeline.ProgressCallback,
) (*runResponse, error) {
	s.session.StartActivity()

	opts := pipeline.Options{
		StageDelay:    s.cfg.StageDelay,
		Parallel:      s.cfg.Parallel,
		DetectMarkers: s.cfg.DetectMarkers,
		Metrics:       s.metrics,
		OnActivity: func(e types.ActivityEntry) {
			s.session.AppendActivity(e)
			if onActivity != nil {
				onActivity(e)
			}
		},
		OnProgress: func(e pipeline.ProgressEvent) {
			log.Printf("[run %s] Step %d/%d: %s", e.RunID, e.Step, e.Total, e.Title)
			if onProgress != nil {
				onProgress(e)
			}
		},
	}

	log.Printf("[run] Starting pipeline for %q with %s", profile.TargetRole, client.Model())
	exec, err := pipeline.Run(ctx, client, profile, opts)
	if err != nil {
		log.Printf("[run %s] Aborted: %v", exec.ID, err)
		return nil, err
	}

	resp := &runResponse{
		RunID:    exec.ID.String(),
		State:    exec.State,
		Trace:    exec.Trace,
		Model:    exec.Result.Model,
		Results:  exec.Result.Results,
		Activity: exec.Activity,
	}

	savedTo, err := s.store.SaveResult(exec.Result)
	if err != nil {
		log.Printf("[run %s] Warning: failed to save results: %v", exec.ID, err)
	}
	resp.SavedTo = savedTo

	if s.db != nil {
		dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		if err := s.db.SaveRun(dbCtx, exec.Result); err != nil {
			log.Printf("[run %s] Warning: failed to store run: %v", exec.ID, err)
		}
		cancel()
	}

	s.session.SetLastResult(exec.Result)
	log.Printf("[run %s] Completed", exec.ID)
	return resp, nil
}
