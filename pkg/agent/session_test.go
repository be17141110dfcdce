package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computer-reinvention/infera/pkg/agent/llm"
	"github.com/computer-reinvention/infera/pkg/agent/llmerrors"
	"github.com/computer-reinvention/infera/pkg/core"
	"github.com/computer-reinvention/infera/pkg/persistence"
	"github.com/computer-reinvention/infera/pkg/policy"
	"github.com/computer-reinvention/infera/pkg/tools"
)

func newTestSession(t *testing.T, client llm.LLMClient, phase core.Phase) *Session {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/app.py", []byte("import flask\n"), 0o644))

	provider := tools.NewProvider(tools.ProjectContext{
		Fs:          fs,
		ProjectRoot: "/proj",
		Provider:    "gcp",
	}, tools.PhaseTools(phase))

	s, err := NewSession(SessionConfig{
		Client:        client,
		Provider:      provider,
		Gate:          policy.NewGate("/proj"),
		Phase:         phase,
		MaxIterations: 5,
	})
	require.NoError(t, err)
	return s
}

func collectEvents(events *[]Event) EventSink {
	return func(e Event) {
		*events = append(*events, e)
	}
}

func TestSessionReturnsTranscriptOnDirectAnswer(t *testing.T) {
	client := NewMockClient(llm.CompletionResponse{
		Content:    "analysis:\n```yaml\nproject_name: demo\n```",
		StopReason: "end_turn",
	})
	s := newTestSession(t, client, core.PhaseConfigure)

	var events []Event
	out, err := s.Run(context.Background(), "system", "analyze", collectEvents(&events))
	require.NoError(t, err)
	assert.Contains(t, out, "project_name: demo")

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Type)
	assert.Equal(t, StatusSuccess, last.Status)
}

func TestSessionExecutesToolCallsThenFinishes(t *testing.T) {
	client := NewMockClient(
		llm.CompletionResponse{
			Content: "Reading the entrypoint first.",
			ToolCalls: []llm.ToolCall{
				{ID: "t1", Name: tools.ToolReadFile, Parameters: map[string]any{"path": "app.py"}},
			},
			StopReason: "tool_use",
		},
		llm.CompletionResponse{Content: "done", StopReason: "end_turn"},
	)
	s := newTestSession(t, client, core.PhaseConfigure)

	var events []Event
	out, err := s.Run(context.Background(), "system", "analyze", collectEvents(&events))
	require.NoError(t, err)
	assert.Contains(t, out, "done")

	var pre, post int
	for _, e := range events {
		switch e.Type {
		case EventToolPre:
			pre++
			assert.Equal(t, tools.ToolReadFile, e.Tool)
		case EventToolPost:
			post++
			assert.False(t, e.IsError)
			assert.Contains(t, e.Result, "import flask")
		}
	}
	assert.Equal(t, 1, pre)
	assert.Equal(t, 1, post)

	// The tool result was fed back in the second request
	require.Len(t, client.Requests, 2)
	second := client.Requests[1]
	found := false
	for _, msg := range second.Messages {
		if msg.Role == llm.RoleUser && len(msg.Content) > 0 && msg.Content != "analyze" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSessionDeniedToolIsReportedNotExecuted(t *testing.T) {
	client := NewMockClient(
		llm.CompletionResponse{
			ToolCalls: []llm.ToolCall{
				{ID: "t1", Name: tools.ToolShell, Parameters: map[string]any{"command": "rm -rf /"}},
			},
			StopReason: "tool_use",
		},
		llm.CompletionResponse{Content: "understood", StopReason: "end_turn"},
	)
	s := newTestSession(t, client, core.PhaseApply)

	var events []Event
	_, err := s.Run(context.Background(), "system", "apply", collectEvents(&events))
	require.NoError(t, err)

	var denied bool
	for _, e := range events {
		if e.Type == EventToolPost && e.IsError {
			denied = true
			assert.Contains(t, e.Result, "destructive")
		}
	}
	assert.True(t, denied)

	// The denial was fed back to the model as a user message
	require.Len(t, client.Requests, 2)
	var deniedMsg bool
	for _, msg := range client.Requests[1].Messages {
		if msg.Role == llm.RoleUser && strings.Contains(msg.Content, "denied by policy") {
			deniedMsg = true
		}
	}
	assert.True(t, deniedMsg)
}

func TestSessionToolOnlyTurnSendsNoEmptyAssistantMessage(t *testing.T) {
	// Claude frequently answers with tool calls and no text at all. The
	// follow-up request must still carry a non-empty assistant turn.
	client := NewMockClient(
		llm.CompletionResponse{
			ToolCalls: []llm.ToolCall{
				{ID: "t1", Name: tools.ToolReadFile, Parameters: map[string]any{"path": "app.py"}},
			},
			StopReason: "tool_use",
		},
		llm.CompletionResponse{Content: "done", StopReason: "end_turn"},
	)
	s := newTestSession(t, client, core.PhaseConfigure)

	_, err := s.Run(context.Background(), "system", "analyze", nil)
	require.NoError(t, err)

	require.Len(t, client.Requests, 2)
	var assistant int
	for _, msg := range client.Requests[1].Messages {
		if msg.Role == llm.RoleAssistant {
			assistant++
			assert.NotEmpty(t, msg.Content)
			assert.Contains(t, msg.Content, tools.ToolReadFile)
		}
	}
	assert.Equal(t, 1, assistant)
}

func TestSessionAuthFailureIsTyped(t *testing.T) {
	client := NewMockClient()
	client.QueueError(llmerrors.NewError(llmerrors.ErrorTypeAuth, "invalid x-api-key"))
	s := newTestSession(t, client, core.PhaseConfigure)

	var events []Event
	_, err := s.Run(context.Background(), "system", "analyze", collectEvents(&events))
	var authErr *core.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "anthropic", authErr.Provider)

	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Type)
	assert.Equal(t, StatusFailure, last.Status)
}

func TestSessionIterationLimitFails(t *testing.T) {
	responses := make([]llm.CompletionResponse, 6)
	for i := range responses {
		responses[i] = llm.CompletionResponse{
			ToolCalls: []llm.ToolCall{
				{ID: "t", Name: tools.ToolReadFile, Parameters: map[string]any{"path": "app.py"}},
			},
			StopReason: "tool_use",
		}
	}
	client := NewMockClient(responses...)
	s := newTestSession(t, client, core.PhaseConfigure)

	var events []Event
	_, err := s.Run(context.Background(), "system", "analyze", collectEvents(&events))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum tool iterations")

	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Type)
	assert.Equal(t, StatusFailure, last.Status)
}

func TestSessionCanceledContextIsInterrupted(t *testing.T) {
	client := NewMockClient()
	s := newTestSession(t, client, core.PhasePlan)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []Event
	_, err := s.Run(ctx, "system", "plan", collectEvents(&events))
	require.Error(t, err)

	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Type)
	assert.Equal(t, StatusInterrupted, last.Status)
}

func TestSessionRecordsAuditTrail(t *testing.T) {
	audit, err := persistence.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer audit.Close()

	client := NewMockClient(
		llm.CompletionResponse{
			ToolCalls: []llm.ToolCall{
				{ID: "t1", Name: tools.ToolReadFile, Parameters: map[string]any{"path": "app.py"}},
			},
			StopReason: "tool_use",
		},
		llm.CompletionResponse{Content: "done", StopReason: "end_turn"},
	)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/app.py", []byte("import flask\n"), 0o644))
	provider := tools.NewProvider(tools.ProjectContext{
		Fs:          fs,
		ProjectRoot: "/proj",
		Provider:    "gcp",
	}, tools.PhaseTools(core.PhaseConfigure))

	s, err := NewSession(SessionConfig{
		Client:        client,
		Provider:      provider,
		Gate:          policy.NewGate("/proj"),
		Audit:         audit,
		Phase:         core.PhaseConfigure,
		MaxIterations: 5,
	})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), "system", "analyze", nil)
	require.NoError(t, err)

	sessions, err := audit.RecentSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, string(core.PhaseConfigure), sessions[0].Phase)
	assert.Equal(t, persistence.SessionStatusSuccess, sessions[0].Status)

	count, err := audit.ToolCallCount(sessions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSessionEmitsExactlyOneResult(t *testing.T) {
	client := NewMockClient(llm.CompletionResponse{Content: "ok", StopReason: "end_turn"})
	s := newTestSession(t, client, core.PhaseConfigure)

	var events []Event
	_, err := s.Run(context.Background(), "system", "go", collectEvents(&events))
	require.NoError(t, err)

	results := 0
	for _, e := range events {
		if e.Type == EventResult {
			results++
		}
	}
	assert.Equal(t, 1, results)
}
