// Package pipeline provides the high-level orchestration for the profile optimization process.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/pipeline/steps"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// State is a position in the run state machine
type State string

// Terminal and initial states. Each stage is also a state, named after the stage.
const (
	StateIdle    State = "idle"
	StateDone    State = "done"
	StateAborted State = "aborted"
)

// DefaultStageDelay is the pause between consecutive stages.
const DefaultStageDelay = 2 * time.Second

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	RunID string `json:"run_id"`
	Step  int    `json:"step"`
	Total int    `json:"total"`
	Stage string `json:"stage"`
	Title string `json:"title"`
	State State  `json:"state"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// MetricsRecorder receives per-stage and per-run outcomes.
type MetricsRecorder interface {
	ObserveStage(stage, outcome string, duration time.Duration)
	ObserveRun(outcome string, duration time.Duration)
}

// Options holds configuration for running the pipeline
type Options struct {
	// Stages overrides the registered stages; mainly for tests.
	Stages []steps.Stage
	// StageDelay is the pause between stages. Zero means no pause.
	StageDelay time.Duration
	// Parallel runs independent stages concurrently in dependency waves.
	Parallel bool
	// DetectMarkers also aborts when a response text contains an error marker.
	DetectMarkers bool
	OnActivity    func(types.ActivityEntry)
	OnProgress    ProgressCallback
	Metrics       MetricsRecorder
	// Out receives "Step i/n" progress lines; nil disables them.
	Out io.Writer
}

// DefaultOptions returns the options used by the CLI and server unless configured otherwise.
func DefaultOptions() Options {
	return Options{StageDelay: DefaultStageDelay}
}

// Execution is the record of one pipeline run
type Execution struct {
	ID       uuid.UUID
	State    State
	Trace    []State
	Result   *types.RunResult
	Activity []types.ActivityEntry

	mu sync.Mutex
}

func (e *Execution) transition(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.State = s
	e.Trace = append(e.Trace, s)
}

// markAborted enters the aborted state; later calls are no-ops.
func (e *Execution) markAborted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State == StateAborted {
		return
	}
	e.State = StateAborted
	e.Trace = append(e.Trace, StateAborted)
}

// AbortError is returned when a stage fails and the run stops
type AbortError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *AbortError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pipeline aborted at %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("pipeline aborted at %s: %s", e.Stage, e.Message)
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

// CompletionError returns the underlying completion failure, if any.
func (e *AbortError) CompletionError() (*llm.CompletionError, bool) {
	var ce *llm.CompletionError
	ok := errors.As(e.Cause, &ce)
	return ce, ok
}

// Run executes the stages against the profile. It returns an Execution in
// either the done or the aborted state; on abort the error is an *AbortError
// and Execution.Result is nil.
func Run(ctx context.Context, client llm.Client, profile types.Profile, opts Options) (exec *Execution, err error) {
	exec = &Execution{ID: uuid.New()}
	exec.transition(StateIdle)

	stages := opts.Stages
	if stages == nil {
		stages = steps.Registry
	}

	activity := types.NewActivityLog(opts.OnActivity)
	started := time.Now()
	r := &runner{
		exec:     exec,
		client:   client,
		profile:  profile,
		opts:     opts,
		total:    len(stages),
		activity: activity,
		outputs:  make(types.PipelineContext, len(stages)),
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = r.abort(r.currentStage(), fmt.Sprintf("panic: %v", rec), nil)
		}
		exec.Activity = activity.Entries()
		if opts.Metrics != nil {
			outcome := "success"
			if err != nil {
				outcome = "aborted"
			}
			opts.Metrics.ObserveRun(outcome, time.Since(started))
		}
	}()

	if client == nil {
		return exec, r.abort("", "no completion client configured", nil)
	}

	if opts.Parallel {
		err = r.runWaves(ctx, stages)
	} else {
		err = r.runSequential(ctx, stages)
	}
	if err != nil {
		return exec, err
	}

	exec.Result = &types.RunResult{
		ID:        exec.ID,
		Profile:   profile,
		Results:   r.snapshot(),
		Model:     client.Model(),
		Timestamp: time.Now(),
	}
	exec.transition(StateDone)
	r.printf("✅ All %d agents completed.\n", r.total)
	return exec, nil
}

type runner struct {
	exec     *Execution
	client   llm.Client
	profile  types.Profile
	opts     Options
	total    int
	activity *types.ActivityLog

	mu      sync.Mutex
	outputs types.PipelineContext
	step    int
	current string
}

func (r *runner) runSequential(ctx context.Context, stages []steps.Stage) error {
	if err := steps.ValidateOrder(stages); err != nil {
		return r.abort("", "invalid stage order", err)
	}
	for i, s := range stages {
		if i > 0 {
			if err := sleep(ctx, r.opts.StageDelay); err != nil {
				return r.abort(s.Name, "run cancelled", err)
			}
		}
		if err := r.runStage(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) runWaves(ctx context.Context, stages []steps.Stage) error {
	waves, err := steps.Waves(stages)
	if err != nil {
		return r.abort("", "invalid stage order", err)
	}

	r.printf("🚀 Running %d agents in %d waves...\n", r.total, len(waves))
	for i, wave := range waves {
		if i > 0 {
			if err := sleep(ctx, r.opts.StageDelay); err != nil {
				return r.abort(wave[0].Name, "run cancelled", err)
			}
		}

		g, gCtx := errgroup.WithContext(ctx)
		for _, s := range wave {
			g.Go(func() (err error) {
				defer func() {
					if rec := recover(); rec != nil {
						err = r.abort(s.Name, fmt.Sprintf("panic: %v", rec), nil)
					}
				}()
				return r.runStage(gCtx, s)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// runStage executes one stage and applies the abort rules to its outcome.
func (r *runner) runStage(ctx context.Context, s steps.Stage) error {
	r.mu.Lock()
	r.step++
	step := r.step
	r.current = s.Name
	view := make(types.PipelineContext, len(r.outputs))
	for k, v := range r.outputs {
		view[k] = v
	}
	r.mu.Unlock()

	r.exec.transition(State(s.Name))
	r.printf("Step %d/%d: %s (%s)...\n", step, r.total, s.Title, s.Role)
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{
			RunID: r.exec.ID.String(),
			Step:  step,
			Total: r.total,
			Stage: s.Name,
			Title: s.Title,
			State: State(s.Name),
		})
	}

	started := time.Now()
	text, err := s.Execute(ctx, r.client, r.profile, view, r.activity)
	if err != nil {
		r.observe(s.Name, outcomeFor(err), started)
		return r.abort(s.Name, userMessage(err), err)
	}
	if r.opts.DetectMarkers && containsMarker(text) {
		r.observe(s.Name, "marker", started)
		return r.abort(s.Name, text, nil)
	}
	r.observe(s.Name, "success", started)

	r.mu.Lock()
	r.outputs[s.Name] = text
	r.mu.Unlock()
	return nil
}

// abort moves the execution to the aborted state once and builds the error.
func (r *runner) abort(stage, message string, cause error) error {
	r.exec.markAborted()
	r.printf("❌ Stopped at %s: %s\n", stage, message)
	return &AbortError{Stage: stage, Message: message, Cause: cause}
}

func (r *runner) currentStage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *runner) snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.outputs))
	for k, v := range r.outputs {
		out[k] = v
	}
	return out
}

func (r *runner) observe(stage, outcome string, started time.Time) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveStage(stage, outcome, time.Since(started))
	}
}

func (r *runner) printf(format string, args ...any) {
	if r.opts.Out != nil {
		_, _ = fmt.Fprintf(r.opts.Out, format, args...)
	}
}

func containsMarker(text string) bool {
	return strings.Contains(text, llm.MarkerHardFailure) || strings.Contains(text, llm.MarkerTransient)
}

func outcomeFor(err error) string {
	var ce *llm.CompletionError
	if errors.As(err, &ce) {
		return string(ce.Kind)
	}
	return "error"
}

func userMessage(err error) string {
	var ce *llm.CompletionError
	if errors.As(err, &ce) {
		return ce.UserMessage()
	}
	return err.Error()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
