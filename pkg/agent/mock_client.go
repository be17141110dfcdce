package agent

import (
	"context"
	"sync"

	"github.com/computer-reinvention/infera/pkg/agent/llm"
	"github.com/computer-reinvention/infera/pkg/agent/llmerrors"
)

// MockClient is a scripted llm.LLMClient for tests. Each Complete call
// returns the next queued response; an exhausted script returns an
// empty-response error.
type MockClient struct {
	mu        sync.Mutex
	responses []llm.CompletionResponse
	errs      []error
	Requests  []llm.CompletionRequest
}

// NewMockClient creates a mock client with the given scripted responses.
func NewMockClient(responses ...llm.CompletionResponse) *MockClient {
	return &MockClient{responses: responses}
}

// QueueError appends an error turn to the script. Error turns are consumed
// after all queued responses.
func (m *MockClient) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// Complete returns the next scripted response.
func (m *MockClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.CompletionResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, in)

	if len(m.responses) > 0 {
		resp := m.responses[0]
		m.responses = m.responses[1:]
		return resp, nil
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return llm.CompletionResponse{}, err
	}
	return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "mock script exhausted")
}

// GetModelName returns a placeholder model name.
func (m *MockClient) GetModelName() string {
	return "mock-model"
}
