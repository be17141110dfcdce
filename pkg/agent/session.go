package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/computer-reinvention/infera/pkg/agent/llm"
	"github.com/computer-reinvention/infera/pkg/agent/llmerrors"
	"github.com/computer-reinvention/infera/pkg/core"
	"github.com/computer-reinvention/infera/pkg/logx"
	"github.com/computer-reinvention/infera/pkg/metrics"
	"github.com/computer-reinvention/infera/pkg/persistence"
	"github.com/computer-reinvention/infera/pkg/policy"
	"github.com/computer-reinvention/infera/pkg/tools"
)

// EventType identifies one kind of session event.
type EventType string

const (
	// EventAssistantText carries text the model produced.
	EventAssistantText EventType = "assistant_text"
	// EventToolPre is emitted before a tool executes, after the policy decision.
	EventToolPre EventType = "tool_pre"
	// EventToolPost is emitted after a tool executes.
	EventToolPost EventType = "tool_post"
	// EventResult is the single terminal event of every session.
	EventResult EventType = "result"
)

// Session terminal statuses.
const (
	StatusSuccess     = "success"
	StatusFailure     = "failure"
	StatusInterrupted = "interrupted"
)

// Event is one observable step of a session. Consumers receive events in
// order; every session ends with exactly one EventResult.
type Event struct {
	Type    EventType
	Text    string         // assistant text (EventAssistantText)
	Tool    string         // tool name (EventToolPre, EventToolPost)
	Args    map[string]any // tool arguments (EventToolPre)
	Result  string         // tool output (EventToolPost)
	IsError bool           // tool outcome (EventToolPost)
	Status  string         // terminal status (EventResult)
	Message string         // terminal detail (EventResult)
}

// EventSink receives session events. A nil sink discards them.
type EventSink func(Event)

// ToolProvider is what a session needs from the tool registry.
type ToolProvider interface {
	Get(name string) (tools.Tool, error)
	Definitions() []tools.ToolDefinition
}

// SessionConfig assembles the collaborators for one phase session.
type SessionConfig struct {
	Client        llm.LLMClient
	Provider      ToolProvider
	Gate          *policy.Gate
	Recorder      metrics.Recorder
	Audit         *persistence.AuditDB // optional
	Phase         core.Phase
	MaxIterations int
	MaxTokens     int
}

// Session drives one LLM conversation for a provisioning phase. It loops
// completions and tool executions until the model stops calling tools, the
// iteration budget runs out, or the context is canceled.
type Session struct {
	client        llm.LLMClient
	provider      ToolProvider
	gate          *policy.Gate
	recorder      metrics.Recorder
	audit         *persistence.AuditDB
	counter       *TokenCounter
	phase         core.Phase
	maxIterations int
	maxTokens     int
	logger        *logx.Logger
}

// NewSession creates a session from the given configuration.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("session requires an LLM client")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("session requires a tool provider")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("session requires a policy gate")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NopRecorder{}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 30
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}

	counter, err := NewTokenCounter()
	if err != nil {
		// Token counting falls back to a character estimate
		counter = nil
	}

	return &Session{
		client:        cfg.Client,
		provider:      cfg.Provider,
		gate:          cfg.Gate,
		recorder:      cfg.Recorder,
		audit:         cfg.Audit,
		counter:       counter,
		phase:         cfg.Phase,
		maxIterations: cfg.MaxIterations,
		maxTokens:     cfg.MaxTokens,
		logger:        logx.NewLogger("session"),
	}, nil
}

// Run executes the session with the given prompts and returns all assistant
// text concatenated in order. Every call emits exactly one EventResult.
func (s *Session) Run(ctx context.Context, systemPrompt, userPrompt string, emit EventSink) (string, error) {
	if emit == nil {
		emit = func(Event) {}
	}

	start := time.Now()
	sessionID := s.beginAudit()

	transcript, err := s.run(ctx, systemPrompt, userPrompt, emit, sessionID)

	status := StatusSuccess
	message := "session completed"
	if err != nil {
		status = StatusFailure
		message = err.Error()
		if errors.Is(err, context.Canceled) {
			status = StatusInterrupted
			message = "session interrupted"
		}
	}

	s.endAudit(sessionID, status)
	s.recorder.ObserveSession(string(s.phase), status, time.Since(start))
	emit(Event{Type: EventResult, Status: status, Message: message})
	return transcript, err
}

func (s *Session) run(ctx context.Context, systemPrompt, userPrompt string, emit EventSink, sessionID string) (string, error) {
	messages := []llm.CompletionMessage{
		llm.NewSystemMessage(systemPrompt),
		llm.NewUserMessage(userPrompt),
	}
	toolDefs := s.provider.Definitions()

	var transcript strings.Builder
	seq := 0

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return transcript.String(), err
		}

		req := llm.NewCompletionRequest(messages, toolDefs)
		req.MaxTokens = s.maxTokens

		s.logger.Debug("iteration %d: %d messages, %d tools", iteration+1, len(messages), len(toolDefs))
		s.observeRequestTokens(&req)

		resp, err := s.client.Complete(ctx, req)
		if err != nil {
			s.logger.Error("completion failed: %v", err)
			if llmerrors.Is(err, llmerrors.ErrorTypeAuth) {
				return transcript.String(), core.NewAuthenticationError("anthropic", err.Error())
			}
			return transcript.String(), fmt.Errorf("LLM completion failed: %w", err)
		}
		s.recorder.ObserveTokens(string(s.phase), 0, s.count(resp.Content))

		if resp.Content != "" {
			transcript.WriteString(resp.Content)
			transcript.WriteString("\n")
			emit(Event{Type: EventAssistantText, Text: resp.Content})
		}

		// The Messages API rejects empty text blocks, so a tool-only turn
		// gets a stand-in assistant message naming the calls.
		assistantText := resp.Content
		if assistantText == "" && len(resp.ToolCalls) > 0 {
			assistantText = toolCallSummary(resp.ToolCalls)
		}
		if assistantText != "" {
			messages = append(messages, llm.NewAssistantMessage(assistantText))
		}

		if len(resp.ToolCalls) == 0 {
			return transcript.String(), nil
		}

		// Every tool call gets a result fed back, denied ones included.
		for i := range resp.ToolCalls {
			call := &resp.ToolCalls[i]
			seq++

			decision := s.gate.PreToolUse(call.Name, call.Parameters)
			emit(Event{Type: EventToolPre, Tool: call.Name, Args: call.Parameters})

			if !decision.Allow {
				s.recorder.ObserveToolCall(call.Name, "deny", 0, true)
				s.recordAudit(sessionID, seq, call.Name, "deny", decision.Reason, 0, true)
				emit(Event{Type: EventToolPost, Tool: call.Name, Result: decision.Reason, IsError: true})
				messages = append(messages, llm.NewUserMessage(
					fmt.Sprintf("Tool %s was denied by policy: %s", call.Name, decision.Reason)))
				continue
			}

			result, isError, execErr := s.executeTool(ctx, call, sessionID, seq)
			if execErr != nil {
				if ctx.Err() != nil {
					return transcript.String(), ctx.Err()
				}
				result = fmt.Sprintf("Tool failed: %v", execErr)
				isError = true
			}

			emit(Event{Type: EventToolPost, Tool: call.Name, Result: result, IsError: isError})
			messages = append(messages, llm.NewUserMessage(
				fmt.Sprintf("Tool %s result:\n%s", call.Name, result)))
		}
	}

	return transcript.String(), fmt.Errorf("maximum tool iterations (%d) exceeded", s.maxIterations)
}

// toolCallSummary renders a tool-only assistant turn as text for the
// message history.
func toolCallSummary(calls []llm.ToolCall) string {
	names := make([]string, 0, len(calls))
	for i := range calls {
		names = append(names, calls[i].Name)
	}
	return "Using tools: " + strings.Join(names, ", ")
}

// executeTool runs one allowed tool call and reports to metrics and audit.
func (s *Session) executeTool(ctx context.Context, call *llm.ToolCall, sessionID string, seq int) (string, bool, error) {
	tool, err := s.provider.Get(call.Name)
	if err != nil {
		return "", true, err
	}

	start := time.Now()
	res, execErr := tool.Exec(ctx, call.Parameters)
	duration := time.Since(start)

	isError := execErr != nil || (res != nil && res.IsError)
	s.gate.PostToolUse(call.Name, duration, isError)
	s.recorder.ObserveToolCall(call.Name, "allow", duration, isError)
	s.recordAudit(sessionID, seq, call.Name, "allow", "", duration, isError)

	content := ""
	if res != nil {
		content = res.Content
	}
	return content, isError, execErr
}

func (s *Session) observeRequestTokens(req *llm.CompletionRequest) {
	total := 0
	for i := range req.Messages {
		total += s.count(req.Messages[i].Content)
	}
	s.logger.Debug("estimated prompt tokens: %d", total)
	s.recorder.ObserveTokens(string(s.phase), total, 0)
}

func (s *Session) count(text string) int {
	return s.counter.CountTokens(text)
}

func (s *Session) beginAudit() string {
	if s.audit == nil {
		return ""
	}
	id, err := s.audit.BeginSession(string(s.phase))
	if err != nil {
		s.logger.Warn("audit disabled for this session: %v", err)
		return ""
	}
	return id
}

func (s *Session) endAudit(sessionID, status string) {
	if s.audit == nil || sessionID == "" {
		return
	}
	auditStatus := persistence.SessionStatusSuccess
	switch status {
	case StatusFailure:
		auditStatus = persistence.SessionStatusFailure
	case StatusInterrupted:
		auditStatus = persistence.SessionStatusInterrupted
	}
	if err := s.audit.EndSession(sessionID, auditStatus); err != nil {
		s.logger.Warn("failed to finalize audit session %s: %v", sessionID, err)
	}
}

func (s *Session) recordAudit(sessionID string, seq int, tool, decision, reason string, duration time.Duration, isError bool) {
	if s.audit == nil || sessionID == "" {
		return
	}
	if err := s.audit.RecordToolCall(sessionID, seq, tool, decision, reason, duration, isError); err != nil {
		s.logger.Warn("failed to record tool call: %v", err)
	}
}
