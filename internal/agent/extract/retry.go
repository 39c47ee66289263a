package extract

import (
	"context"
	"time"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// RetryingExtractor wraps an Extractor with bounded exponential backoff.
// Only failures marked retryable are retried; permanent failures and
// context cancellation return immediately.
type RetryingExtractor struct {
	inner       Extractor
	maxAttempts int
	baseDelay   time.Duration
	logger      logger.Logger
}

func NewRetryingExtractor(inner Extractor, maxAttempts int, baseDelay time.Duration, log logger.Logger) *RetryingExtractor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &RetryingExtractor{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      log,
	}
}

func (r *RetryingExtractor) CanProcess(mimeType string) bool {
	return r.inner.CanProcess(mimeType)
}

func (r *RetryingExtractor) Extract(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result, err := r.inner.Extract(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == r.maxAttempts {
			break
		}

		r.logger.Warn("extraction attempt failed, retrying",
			logger.String("file_name", req.FileName),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err))

		select {
		case <-ctx.Done():
			return nil, &ExtractionError{Op: "retry_wait", Retryable: true, Err: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, lastErr
}
