package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// scriptedExtractor returns the queued responses in order.
type scriptedExtractor struct {
	calls   int
	results []*models.ExtractionResult
	errs    []error
}

func (s *scriptedExtractor) Extract(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	i := s.calls
	s.calls++
	return s.results[i], s.errs[i]
}

func (s *scriptedExtractor) CanProcess(string) bool { return true }

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	want := &models.ExtractionResult{Text: "recovered", PageCount: 1}
	inner := &scriptedExtractor{
		results: []*models.ExtractionResult{nil, nil, want},
		errs: []error{
			&ExtractionError{Op: "detect_text", Retryable: true, Err: errors.New("throttled")},
			&ExtractionError{Op: "detect_text", Retryable: true, Err: errors.New("throttled")},
			nil,
		},
	}
	r := NewRetryingExtractor(inner, 3, time.Millisecond, logger.NewTestLogger())

	got, err := r.Extract(context.Background(), Request{FileName: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStopsOnPermanentFailure(t *testing.T) {
	permanent := &ExtractionError{Op: "detect_text", Retryable: false, Err: errors.New("unsupported document")}
	inner := &scriptedExtractor{
		results: []*models.ExtractionResult{nil, nil},
		errs:    []error{permanent, nil},
	}
	r := NewRetryingExtractor(inner, 3, time.Millisecond, logger.NewTestLogger())

	_, err := r.Extract(context.Background(), Request{FileName: "a.pdf"})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	transient := &ExtractionError{Op: "detect_text", Retryable: true, Err: errors.New("throttled")}
	inner := &scriptedExtractor{
		results: []*models.ExtractionResult{nil, nil, nil},
		errs:    []error{transient, transient, transient},
	}
	r := NewRetryingExtractor(inner, 3, time.Millisecond, logger.NewTestLogger())

	_, err := r.Extract(context.Background(), Request{FileName: "a.pdf"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	transient := &ExtractionError{Op: "detect_text", Retryable: true, Err: errors.New("throttled")}
	inner := &scriptedExtractor{
		results: []*models.ExtractionResult{nil, nil, nil},
		errs:    []error{transient, transient, transient},
	}
	r := NewRetryingExtractor(inner, 3, time.Hour, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Extract(ctx, Request{FileName: "a.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ExtractionError{Retryable: true, Err: errors.New("x")}))
	assert.False(t, IsRetryable(&ExtractionError{Retryable: false, Err: errors.New("x")}))
	assert.False(t, IsRetryable(errors.New("plain error")))
	assert.False(t, IsRetryable(nil))
}
