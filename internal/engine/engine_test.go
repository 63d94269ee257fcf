package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/verdict/internal/metrics"
	"github.com/felixgeelhaar/verdict/internal/provider"
)

// stubAdapter is a scripted provider adapter.
type stubAdapter struct {
	kind      provider.Kind
	reply     string
	err       error
	panicWith any
	block     bool

	calls   atomic.Int32
	lastReq atomic.Pointer[provider.CallRequest]
}

func (s *stubAdapter) Kind() provider.Kind  { return s.kind }
func (s *stubAdapter) DefaultModel() string { return "stub-default" }

func (s *stubAdapter) Call(ctx context.Context, req provider.CallRequest) (string, error) {
	s.calls.Add(1)
	s.lastReq.Store(&req)
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	if s.block {
		<-ctx.Done()
		return "", &provider.AdapterError{Provider: s.kind, Reason: provider.ReasonCanceled, Err: ctx.Err()}
	}
	return s.reply, s.err
}

func newTestEngine(t *testing.T, sim *Simulator, adapters ...provider.Adapter) *Engine {
	t.Helper()

	reg := provider.NewRegistry()
	for _, a := range adapters {
		require.NoError(t, reg.Register(a, provider.Settings{}))
	}

	return New(
		WithRegistry(reg),
		WithSimulator(sim),
		WithLogger(quietLogger()),
	)
}

var loginCase = Descriptor{
	ID:             "TC-1",
	Title:          "Login works",
	Description:    "A registered user can log in",
	Steps:          "1. Open app\n2. Tap login\n3. Verify home screen",
	ExpectedResult: "Home screen is shown",
	Priority:       PriorityHigh,
}

// assertSimulationTail checks that the last 2+n+1 entries were written by the simulator.
func assertSimulationTail(t *testing.T, log []LogEntry, n int) {
	t.Helper()

	require.GreaterOrEqual(t, len(log), 2+n+1)
	tail := log[len(log)-(2+n+1):]
	assert.Equal(t, "Starting simulated execution...", tail[0].Message)
	for i := 0; i < n; i++ {
		assert.Equal(t, CategoryStep, tail[2+i].Type)
	}
}

func TestExecute_SimulationWithoutProvider(t *testing.T) {
	e := newTestEngine(t, passingSim())

	res := e.Execute(context.Background(), Request{Descriptor: loginCase, ExecutedBy: "alice"})

	assert.Equal(t, Passed, res.Verdict)
	assert.False(t, res.AIUsed)
	assert.Equal(t, ModeSimulation, res.Mode)
	assert.Equal(t, "alice", res.ExecutedBy)
	assert.Empty(t, res.Provider)
	assert.Len(t, res.Log, 6)
	assert.GreaterOrEqual(t, res.ElapsedSeconds, 0.0)
}

func TestExecute_EmptyStepsIsOneStep(t *testing.T) {
	e := newTestEngine(t, failingSim(0))

	res := e.Execute(context.Background(), Request{Descriptor: Descriptor{Title: "Empty", Steps: ""}})

	assert.Equal(t, Failed, res.Verdict)
	assert.Equal(t, "Step 1 failed: Element not found or assertion failed", res.ErrorMessage)
	assert.Len(t, res.Log, 4)
	assert.Equal(t, "Found 1 steps to execute", res.Log[1].Message)
}

func TestExecute_ProviderWithoutCredentialNeverCalls(t *testing.T) {
	adapter := &stubAdapter{kind: provider.KindOpenAI, reply: `{"status":"Passed"}`}
	e := newTestEngine(t, passingSim(), adapter)

	for _, cred := range []string{"", "   "} {
		res := e.Execute(context.Background(), Request{
			Descriptor: loginCase,
			Config:     ExecutionConfig{Provider: provider.KindOpenAI, Credential: cred},
		})
		assert.Equal(t, ModeSimulation, res.Mode)
		assert.False(t, res.AIUsed)
	}

	assert.Zero(t, adapter.calls.Load())
}

func TestExecute_CredentialWithoutProviderSimulates(t *testing.T) {
	e := newTestEngine(t, passingSim())

	res := e.Execute(context.Background(), Request{
		Descriptor: loginCase,
		Config:     ExecutionConfig{Credential: "sk-test"},
	})

	assert.Equal(t, ModeSimulation, res.Mode)
	assert.Len(t, res.Log, 6)
}

func TestExecute_AIPath(t *testing.T) {
	adapter := &stubAdapter{
		kind:  provider.KindOpenAI,
		reply: `Sure! Here is the result: {"status":"Passed","confidence":0.92,"issues":[],"recommendations":["add negative test"]} Thanks.`,
	}
	e := newTestEngine(t, failingSim(0), adapter)

	res := e.Execute(context.Background(), Request{
		Descriptor: loginCase,
		ExecutedBy: "bob",
		Config:     ExecutionConfig{Provider: provider.KindOpenAI, Credential: "sk-test", Model: "gpt-test"},
	})

	assert.Equal(t, Passed, res.Verdict)
	assert.True(t, res.AIUsed)
	assert.Equal(t, ModeAI, res.Mode)
	assert.Equal(t, provider.KindOpenAI, res.Provider)
	assert.Empty(t, res.ErrorMessage)
	assert.Equal(t, []string{
		"Starting AI-driven execution with openai...",
		"Sending test case to OpenAI (gpt-test)...",
		"Received AI validation response",
		"AI recommendation: add negative test",
		"AI validation result: Passed (confidence: 0.92)",
	}, messages(res.Log))

	req := adapter.lastReq.Load()
	require.NotNil(t, req)
	assert.Equal(t, "sk-test", req.Credential)
	assert.Equal(t, "gpt-test", req.Model)
	assert.Equal(t, provider.SystemPrompt, req.Prompt.System)
	assert.Contains(t, req.Prompt.User, "- Title: Login works")
	assert.Contains(t, req.Prompt.User, "- Priority: High")
}

func TestExecute_AIPathUsesAdapterDefaultModel(t *testing.T) {
	adapter := &stubAdapter{kind: provider.KindAnthropic, reply: `{"status":"Failed","error_message":"Missing precondition"}`}
	e := newTestEngine(t, passingSim(), adapter)

	res := e.Execute(context.Background(), Request{
		Descriptor: loginCase,
		Config:     ExecutionConfig{Provider: provider.KindAnthropic, Credential: "key"},
	})

	assert.Equal(t, Failed, res.Verdict)
	assert.Equal(t, "Missing precondition", res.ErrorMessage)
	assert.True(t, res.AIUsed)
	assert.Equal(t, "stub-default", adapter.lastReq.Load().Model)
	assert.Contains(t, messages(res.Log), "Sending test case to Anthropic (stub-default)...")
}

func TestExecute_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		config  ExecutionConfig
		adapter *stubAdapter
		wantMsg string
	}{
		{
			name:    "adapter rejects credential",
			config:  ExecutionConfig{Provider: provider.KindOpenAI, Credential: "bad"},
			adapter: &stubAdapter{kind: provider.KindOpenAI, err: &provider.AdapterError{Provider: provider.KindOpenAI, Reason: provider.ReasonAuth, StatusCode: 401}},
			wantMsg: "401 Unauthorized",
		},
		{
			name:    "prose without json",
			config:  ExecutionConfig{Provider: provider.KindOpenAI, Credential: "key"},
			adapter: &stubAdapter{kind: provider.KindOpenAI, reply: "Looks good to me!"},
			wantMsg: "malformed AI response",
		},
		{
			name:    "unsupported provider",
			config:  ExecutionConfig{Provider: provider.Kind("mistral"), Credential: "key"},
			adapter: &stubAdapter{kind: provider.KindOpenAI},
			wantMsg: "unsupported AI provider: mistral",
		},
		{
			name:    "registered kind without adapter",
			config:  ExecutionConfig{Provider: provider.KindGemini, Credential: "key"},
			adapter: &stubAdapter{kind: provider.KindOpenAI},
			wantMsg: "unsupported AI provider: gemini",
		},
		{
			name:    "bare context error",
			config:  ExecutionConfig{Provider: provider.KindOpenAI, Credential: "key"},
			adapter: &stubAdapter{kind: provider.KindOpenAI, err: context.DeadlineExceeded},
			wantMsg: "deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, failingSim(2), tt.adapter)

			res := e.Execute(context.Background(), Request{Descriptor: loginCase, Config: tt.config})

			assert.False(t, res.AIUsed)
			assert.Equal(t, ModeFallback, res.Mode)
			assert.Empty(t, res.Provider)
			assert.Equal(t, Failed, res.Verdict)
			assert.Equal(t, "Step 3 failed: Element not found or assertion failed", res.ErrorMessage)

			var warning *LogEntry
			for i := range res.Log {
				if res.Log[i].Type == CategoryWarning {
					warning = &res.Log[i]
				}
			}
			require.NotNil(t, warning, "expected a fallback warning")
			assert.Contains(t, warning.Message, tt.wantMsg)
			assert.Contains(t, warning.Message, "Falling back to simulation")

			assertSimulationTail(t, res.Log, 3)
			assert.Equal(t, "Starting AI-driven execution with "+tt.config.Provider.String()+"...", res.Log[0].Message)
		})
	}
}

func TestExecute_CancelMidCallFallsBack(t *testing.T) {
	adapter := &stubAdapter{kind: provider.KindGemini, block: true}
	e := newTestEngine(t, NewSimulator(SimulationConfig{PassRate: 1, StepDelay: time.Hour}), adapter)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	res := e.Execute(ctx, Request{
		Descriptor: loginCase,
		Config:     ExecutionConfig{Provider: provider.KindGemini, Credential: "key"},
	})

	assert.Equal(t, ModeFallback, res.Mode)
	assert.False(t, res.AIUsed)
	assert.Equal(t, Passed, res.Verdict)
	assertSimulationTail(t, res.Log, 3)
	assert.Less(t, res.ElapsedSeconds, 5.0)
}

func TestExecute_UnexpectedErrorIsFault(t *testing.T) {
	adapter := &stubAdapter{kind: provider.KindOpenAI, err: errors.New("plugin exploded")}
	e := newTestEngine(t, passingSim(), adapter)

	res := e.Execute(context.Background(), Request{
		Descriptor: loginCase,
		Config:     ExecutionConfig{Provider: provider.KindOpenAI, Credential: "key"},
	})

	assert.Equal(t, Failed, res.Verdict)
	assert.Equal(t, ModeFault, res.Mode)
	assert.False(t, res.AIUsed)
	assert.Equal(t, "Execution error: plugin exploded", res.ErrorMessage)
	assert.Equal(t, []string{
		"Starting AI-driven execution with openai...",
		"Sending test case to OpenAI (stub-default)...",
	}, messages(res.Log))
}

func TestExecute_PanicIsFault(t *testing.T) {
	adapter := &stubAdapter{kind: provider.KindOpenAI, panicWith: "nil map write"}
	e := newTestEngine(t, passingSim(), adapter)

	var res Result
	require.NotPanics(t, func() {
		res = e.Execute(context.Background(), Request{
			Descriptor: loginCase,
			Config:     ExecutionConfig{Provider: provider.KindOpenAI, Credential: "key"},
		})
	})

	assert.Equal(t, Failed, res.Verdict)
	assert.Equal(t, ModeFault, res.Mode)
	assert.False(t, res.AIUsed)
	assert.True(t, strings.HasPrefix(res.ErrorMessage, "Execution error: panic: nil map write"))
	assert.NotEmpty(t, res.Log)
	assert.GreaterOrEqual(t, res.ElapsedSeconds, 0.0)
}

func TestExecute_NeverPanicsWithDefaults(t *testing.T) {
	e := New(WithLogger(quietLogger()), WithSimulator(passingSim()))

	configs := []ExecutionConfig{
		{},
		{Provider: provider.KindOpenAI},
		{Provider: provider.KindOpenAI, Credential: "k"},
		{Provider: provider.Kind("???"), Credential: "k"},
	}
	for _, cfg := range configs {
		require.NotPanics(t, func() {
			res := e.Execute(context.Background(), Request{Config: cfg})
			assert.Contains(t, []Verdict{Passed, Failed}, res.Verdict)
		})
	}
}

func TestExecute_Metrics(t *testing.T) {
	_, m := metrics.NewRegistry()

	adapter := &stubAdapter{kind: provider.KindOpenAI, err: &provider.AdapterError{Provider: provider.KindOpenAI, Reason: provider.ReasonAuth, StatusCode: 401}}
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(adapter, provider.Settings{}))
	e := New(WithRegistry(reg), WithSimulator(passingSim()), WithLogger(quietLogger()), WithMetrics(m))

	e.Execute(context.Background(), Request{Descriptor: loginCase})
	e.Execute(context.Background(), Request{
		Descriptor: loginCase,
		Config:     ExecutionConfig{Provider: provider.KindOpenAI, Credential: "bad"},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("simulation", "Passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("fallback", "Passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("openai", "adapter_auth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCalls.WithLabelValues("openai", "stub-default", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues("openai", "stub-default", "auth")))
}

func TestExecute_ConcurrentCallsHaveIndependentLogs(t *testing.T) {
	adapter := &stubAdapter{kind: provider.KindOpenAI, reply: `{"status":"Passed","confidence":0.5}`}
	e := newTestEngine(t, NewSimulator(SimulationConfig{PassRate: 0.5}), adapter)

	var wg sync.WaitGroup
	results := make([]Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := ExecutionConfig{}
			if i%2 == 0 {
				cfg = ExecutionConfig{Provider: provider.KindOpenAI, Credential: "k"}
			}
			results[i] = e.Execute(context.Background(), Request{Descriptor: loginCase, Config: cfg})
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if i%2 == 0 {
			assert.Equal(t, ModeAI, res.Mode)
			assert.Len(t, res.Log, 4)
		} else {
			assert.Equal(t, ModeSimulation, res.Mode)
			assert.Len(t, res.Log, 6)
		}
	}
}

func TestExecute_DoesNotMutateDescriptor(t *testing.T) {
	e := newTestEngine(t, passingSim())
	d := loginCase

	e.Execute(context.Background(), Request{Descriptor: d})

	assert.Equal(t, loginCase, d)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{in: "", want: PriorityMedium},
		{in: "low", want: PriorityLow},
		{in: "HIGH", want: PriorityHigh},
		{in: " Medium ", want: PriorityMedium},
		{in: "urgent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
