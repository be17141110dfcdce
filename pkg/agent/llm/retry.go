package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/computer-reinvention/infera/pkg/agent/llmerrors"
)

// RetryMiddleware wraps a client with exponential backoff driven by the
// classified error type. Auth and bad-prompt errors fail immediately; each
// retryable type carries its own budget from llmerrors.DefaultRetryConfigs.
func RetryMiddleware() Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				for attempt := 0; ; attempt++ {
					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}

					var llmErr *llmerrors.Error
					if !errors.As(err, &llmErr) || !llmErr.IsRetryable() {
						return CompletionResponse{}, err
					}

					cfg := llmErr.GetRetryConfig()
					if attempt >= cfg.MaxRetries {
						return CompletionResponse{}, fmt.Errorf(
							"retries exhausted after %d attempts: %w", attempt+1, err)
					}

					select {
					case <-ctx.Done():
						return CompletionResponse{}, ctx.Err()
					case <-time.After(backoffDelay(cfg, attempt)):
					}
				}
			},
			next.GetModelName,
		)
	}
}

// backoffDelay computes the delay before retry number attempt+1, growing
// geometrically from InitialDelay and capped at MaxDelay.
func backoffDelay(cfg llmerrors.RetryConfig, attempt int) time.Duration {
	delay := cfg.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
