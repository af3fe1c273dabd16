package translate

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/polyvox/polyvox/internal/pipeline"
)

// retrier wraps a translator with bounded retries for transient
// failures. Structural errors pass through on the first attempt.
type retrier struct {
	inner   pipeline.Translator
	retries int
	backoff time.Duration
}

func withRetry(t pipeline.Translator, retries int) pipeline.Translator {
	return &retrier{inner: t, retries: retries, backoff: 500 * time.Millisecond}
}

func (r *retrier) Translate(ctx context.Context, req pipeline.TranslationRequest) (pipeline.TranslationResult, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			wait := r.backoff * time.Duration(1<<(attempt-1))
			log.Debug("retrying translation", "attempt", attempt, "wait", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return pipeline.TranslationResult{}, ctx.Err()
			}
		}

		result, err := r.inner.Translate(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !pipeline.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return pipeline.TranslationResult{}, lastErr
}
