package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/pipeline/steps"
	"github.com/jonathan/linkedin-optimizer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient answers calls from script in order, then with "output-N".
type fakeClient struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	script  []reply
	panicOn int
}

type reply struct {
	text string
	err  error
}

func (c *fakeClient) Complete(_ context.Context, prompt string, _ int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.prompts = append(c.prompts, prompt)
	if c.panicOn == c.calls {
		panic("boom")
	}
	if c.calls <= len(c.script) {
		r := c.script[c.calls-1]
		return r.text, r.err
	}
	return fmt.Sprintf("output-%d", c.calls), nil
}

func (c *fakeClient) Model() string { return "fake/model" }
func (c *fakeClient) Close() error  { return nil }

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func devOpsProfile() types.Profile {
	return types.Profile{TargetRole: "Remote Senior DevOps Engineer"}
}

func TestRun_AllStagesSucceed(t *testing.T) {
	client := &fakeClient{script: []reply{
		{text: "ANALYSIS"},
		{text: "CRITIQUE"},
		{text: "REWRITE"},
		{text: "REVIEW"},
	}}

	exec, err := Run(context.Background(), client, devOpsProfile(), Options{})
	require.NoError(t, err)
	require.NotNil(t, exec.Result)

	assert.Equal(t, StateDone, exec.State)
	assert.Equal(t, []State{StateIdle, "agent1", "agent2", "agent3", "agent4", StateDone}, exec.Trace)
	assert.Equal(t, map[string]string{
		"agent1": "ANALYSIS",
		"agent2": "CRITIQUE",
		"agent3": "REWRITE",
		"agent4": "REVIEW",
	}, exec.Result.Results)
	assert.True(t, exec.Result.Complete())
	assert.Equal(t, exec.ID, exec.Result.ID)
	assert.Equal(t, "fake/model", exec.Result.Model)
	assert.False(t, exec.Result.Timestamp.IsZero())
	assert.Equal(t, 4, client.callCount())
	assert.Len(t, exec.Activity, 8)
}

func TestRun_ContextHandOff(t *testing.T) {
	analysis := strings.Repeat("1", 800) + "ANALYSIS-OVERFLOW"
	rewrite := strings.Repeat("3", 800) + "REWRITE-OVERFLOW"
	client := &fakeClient{script: []reply{
		{text: analysis},
		{text: "CRITIQUE-TEXT"},
		{text: rewrite},
		{text: "REVIEW"},
	}}

	_, err := Run(context.Background(), client, devOpsProfile(), Options{})
	require.NoError(t, err)
	require.Len(t, client.prompts, 4)

	assert.Contains(t, client.prompts[1], strings.Repeat("1", 800))
	assert.NotContains(t, client.prompts[1], "ANALYSIS-OVERFLOW")
	assert.NotContains(t, client.prompts[2], "CRITIQUE-TEXT")
	assert.NotContains(t, client.prompts[2], "1111")
	assert.Contains(t, client.prompts[3], strings.Repeat("3", 800))
	assert.NotContains(t, client.prompts[3], "REWRITE-OVERFLOW")
	assert.NotContains(t, client.prompts[3], "CRITIQUE-TEXT")
}

func TestRun_ProfileTruncation(t *testing.T) {
	about := strings.Repeat("a", 400) + strings.Repeat("b", 100) + strings.Repeat("c", 500)
	profile := types.Profile{TargetRole: "Remote SRE", About: about}
	client := &fakeClient{}

	_, err := Run(context.Background(), client, profile, Options{})
	require.NoError(t, err)

	assert.Contains(t, client.prompts[0], "ABOUT: "+about[:500]+"\n")
	assert.NotContains(t, client.prompts[0], about[:501])
	assert.Contains(t, client.prompts[2], "CURRENT ABOUT: "+about[:400]+"\n")
	assert.NotContains(t, client.prompts[2], about[:401])
}

func TestRun_AbortsOnCompletionError(t *testing.T) {
	kinds := []llm.ErrorKind{
		llm.KindUnauthorized,
		llm.KindModelNotFound,
		llm.KindModelLoading,
		llm.KindRateLimited,
		llm.KindTimeout,
		llm.KindUnknown,
	}

	for failAt := 1; failAt <= 4; failAt++ {
		for _, kind := range kinds {
			t.Run(fmt.Sprintf("stage%d/%s", failAt, kind), func(t *testing.T) {
				script := make([]reply, failAt)
				for i := range script {
					script[i] = reply{text: "ok"}
				}
				script[failAt-1] = reply{err: &llm.CompletionError{Kind: kind, Message: "x"}}
				client := &fakeClient{script: script}

				exec, err := Run(context.Background(), client, devOpsProfile(), Options{})

				var abortErr *AbortError
				require.ErrorAs(t, err, &abortErr)
				assert.Equal(t, types.StageNames[failAt-1], abortErr.Stage)
				ce, ok := abortErr.CompletionError()
				require.True(t, ok)
				assert.Equal(t, kind, ce.Kind)
				assert.Equal(t, ce.UserMessage(), abortErr.Message)

				assert.Equal(t, StateAborted, exec.State)
				assert.Nil(t, exec.Result)
				assert.Equal(t, failAt, client.callCount())
				assert.Equal(t, StateAborted, exec.Trace[len(exec.Trace)-1])
			})
		}
	}
}

func TestRun_FirstStageHardFailureMakesOneCall(t *testing.T) {
	client := &fakeClient{script: []reply{
		{err: &llm.CompletionError{Kind: llm.KindUnauthorized, Message: "unauthorized"}},
	}}

	exec, err := Run(context.Background(), client, devOpsProfile(), Options{})
	require.Error(t, err)
	assert.Equal(t, 1, client.callCount())
	assert.Equal(t, []State{StateIdle, "agent1", StateAborted}, exec.Trace)
}

func TestRun_AbortsOnPlainError(t *testing.T) {
	client := &fakeClient{script: []reply{{text: "ok"}, {err: errors.New("socket closed")}}}

	exec, err := Run(context.Background(), client, devOpsProfile(), Options{})
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, "agent2", abortErr.Stage)
	assert.Equal(t, "socket closed", abortErr.Message)
	assert.Nil(t, exec.Result)
}

func TestRun_MarkerDetection(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		detect bool
		abort  bool
	}{
		{name: "hard marker detected", text: "❌ Error: upstream", detect: true, abort: true},
		{name: "transient marker detected", text: "🔄 Model is loading", detect: true, abort: true},
		{name: "throttle marker passes", text: "⏱️ slow", detect: true, abort: false},
		{name: "detection disabled", text: "❌ looks bad", detect: false, abort: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{script: []reply{{text: tt.text}}}

			exec, err := Run(context.Background(), client, devOpsProfile(), Options{DetectMarkers: tt.detect})
			if tt.abort {
				var abortErr *AbortError
				require.ErrorAs(t, err, &abortErr)
				assert.Equal(t, tt.text, abortErr.Message)
				assert.Equal(t, 1, client.callCount())
				assert.Nil(t, exec.Result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.text, exec.Result.Results["agent1"])
		})
	}
}

func TestRun_EmptyResponsePlaceholderContinues(t *testing.T) {
	client := &fakeClient{script: []reply{{text: llm.EmptyResponseMessage}}}

	exec, err := Run(context.Background(), client, devOpsProfile(), Options{DetectMarkers: true})
	require.NoError(t, err)
	assert.Equal(t, llm.EmptyResponseMessage, exec.Result.Results["agent1"])
	assert.Contains(t, client.prompts[1], llm.EmptyResponseMessage)
}

func TestRun_PanicIsRecovered(t *testing.T) {
	client := &fakeClient{panicOn: 3}

	exec, err := Run(context.Background(), client, devOpsProfile(), Options{})
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, "agent3", abortErr.Stage)
	assert.Contains(t, abortErr.Message, "boom")
	assert.Equal(t, StateAborted, exec.State)
	assert.Nil(t, exec.Result)
}

func TestRun_StageDelayHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{}

	done := make(chan struct{})
	var exec *Execution
	var err error
	go func() {
		exec, err = Run(ctx, client, devOpsProfile(), Options{StageDelay: time.Hour})
		close(done)
	}()

	require.Eventually(t, func() bool { return client.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "agent2", abortErr.Stage)
	assert.Equal(t, 1, client.callCount())
	assert.Nil(t, exec.Result)
}

func TestRun_ActivityStreamingAndProgress(t *testing.T) {
	var mu sync.Mutex
	var streamed []types.ActivityEntry
	var progress []ProgressEvent
	var out bytes.Buffer

	exec, err := Run(context.Background(), &fakeClient{}, devOpsProfile(), Options{
		OnActivity: func(e types.ActivityEntry) {
			mu.Lock()
			streamed = append(streamed, e)
			mu.Unlock()
		},
		OnProgress: func(e ProgressEvent) { progress = append(progress, e) },
		Out:        &out,
	})
	require.NoError(t, err)

	assert.Equal(t, exec.Activity, streamed)
	assert.Equal(t, "Agent 1: Analyzer", streamed[0].Agent)
	assert.Equal(t, "✅ Review complete", streamed[len(streamed)-1].Message)

	require.Len(t, progress, 4)
	assert.Equal(t, 1, progress[0].Step)
	assert.Equal(t, 4, progress[3].Total)
	assert.Equal(t, "agent4", progress[3].Stage)

	assert.Contains(t, out.String(), "Step 1/4: Agent 1: Analyzer (Initial Analysis)...")
	assert.Contains(t, out.String(), "Step 4/4: Agent 4: Reviewer (Quality Assurance)...")
}

type recordingMetrics struct {
	mu     sync.Mutex
	stages map[string]string
	runs   []string
}

func (m *recordingMetrics) ObserveStage(stage, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stages == nil {
		m.stages = map[string]string{}
	}
	m.stages[stage] = outcome
}

func (m *recordingMetrics) ObserveRun(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, outcome)
}

func TestRun_RecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	client := &fakeClient{script: []reply{
		{text: "ok"},
		{err: &llm.CompletionError{Kind: llm.KindRateLimited, Message: "rate_limited"}},
	}}

	_, err := Run(context.Background(), client, devOpsProfile(), Options{Metrics: metrics})
	require.Error(t, err)

	assert.Equal(t, map[string]string{"agent1": "success", "agent2": "rate_limited"}, metrics.stages)
	assert.Equal(t, []string{"aborted"}, metrics.runs)
}

func TestRun_Parallel(t *testing.T) {
	client := &fakeClient{}

	exec, err := Run(context.Background(), client, devOpsProfile(), Options{Parallel: true})
	require.NoError(t, err)
	require.True(t, exec.Result.Complete())
	assert.Equal(t, 4, client.callCount())
	assert.Equal(t, StateDone, exec.State)

	// agent2 and agent4 prompts carry their own dependency's output only.
	byStage := map[string]string{}
	for _, p := range client.prompts {
		switch {
		case strings.Contains(p, "Critical Reviewer"):
			byStage["agent2"] = p
		case strings.Contains(p, "Quality Reviewer"):
			byStage["agent4"] = p
		}
	}
	assert.Contains(t, byStage["agent2"], exec.Result.Results["agent1"])
	assert.NotContains(t, byStage["agent2"], exec.Result.Results["agent3"])
	assert.Contains(t, byStage["agent4"], exec.Result.Results["agent3"])
}

func TestRun_ParallelAbort(t *testing.T) {
	failing := &llm.CompletionError{Kind: llm.KindUnauthorized, Message: "unauthorized"}
	client := &fakeClient{script: []reply{{err: failing}, {err: failing}}}

	exec, err := Run(context.Background(), client, devOpsProfile(), Options{Parallel: true})
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Nil(t, exec.Result)
	assert.Equal(t, StateAborted, exec.State)
	assert.LessOrEqual(t, client.callCount(), 2)

	aborted := 0
	for _, s := range exec.Trace {
		if s == StateAborted {
			aborted++
		}
	}
	assert.Equal(t, 1, aborted)
}

func TestRun_InvalidStageOrder(t *testing.T) {
	client := &fakeClient{}
	stages := []steps.Stage{steps.Registry[3]}

	_, err := Run(context.Background(), client, devOpsProfile(), Options{Stages: stages})
	var depErr *steps.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Zero(t, client.callCount())
}

func TestRun_NilClient(t *testing.T) {
	exec, err := Run(context.Background(), nil, devOpsProfile(), Options{})
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.Equal(t, StateAborted, exec.State)
}

func TestDefaultOptions(t *testing.T) {
	assert.Equal(t, 2*time.Second, DefaultOptions().StageDelay)
	assert.False(t, DefaultOptions().Parallel)
}
