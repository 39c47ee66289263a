package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func newTestMachine(maxRetries int) *Machine {
	return NewMachine(NewMemoryStore(), maxRetries, logger.NewTestLogger())
}

func TestBeginCreatesFreshRecord(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	state, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", state.DocumentID)
	assert.Equal(t, 1, state.Generation)
	assert.Equal(t, models.StatusPending, state.Status)
	assert.Equal(t, 5, state.Progress)
}

func TestBeginReturnsExistingRecord(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)

	state, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExtracting, state.Status)
}

func TestAdvanceWalksForward(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)

	stages := []struct {
		status   models.OCRStatus
		progress int
	}{
		{models.StatusExtracting, 30},
		{models.StatusClassifying, 55},
		{models.StatusCreatingFolders, 75},
		{models.StatusSorting, 90},
		{models.StatusCompleted, 100},
	}
	for _, stage := range stages {
		state, err := m.Advance(ctx, "doc-1", stage.status)
		require.NoError(t, err)
		assert.Equal(t, stage.status, state.Status)
		assert.Equal(t, stage.progress, state.Progress)
	}
}

func TestAdvanceRejectsBackwardMove(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusClassifying)
	require.NoError(t, err)

	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Re-entering the current stage is also rejected.
	_, err = m.Advance(ctx, "doc-1", models.StatusClassifying)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEnsureToleratesEarlierStages(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusClassifying)
	require.NoError(t, err)

	// A redelivered document replays stages it already passed; the record
	// keeps its position instead of rejecting the move.
	state, err := m.Ensure(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClassifying, state.Status)

	state, err = m.Ensure(ctx, "doc-1", models.StatusClassifying)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClassifying, state.Status)

	// Forward moves still advance and persist.
	state, err = m.Ensure(ctx, "doc-1", models.StatusCreatingFolders)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreatingFolders, state.Status)
	assert.Equal(t, 75, state.Progress)
}

func TestEnsureCompletedIsIdempotent(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Override(ctx, "doc-1")
	require.NoError(t, err)

	state, err := m.Ensure(ctx, "doc-1", models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)

	// Everything short of completed is still rejected on a terminal record.
	state, err = m.Ensure(ctx, "doc-1", models.StatusClassifying)
	assert.ErrorIs(t, err, ErrTerminal)
	require.NotNil(t, state)
	assert.Equal(t, models.StatusCompleted, state.Status)
}

func TestTerminalStateIsImmutable(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)
	_, err = m.Fail(ctx, "doc-1", models.StatusExtracting, errors.New("engine down"), true)
	require.NoError(t, err)

	_, err = m.Advance(ctx, "doc-1", models.StatusClassifying)
	assert.ErrorIs(t, err, ErrTerminal)
	_, err = m.Fail(ctx, "doc-1", models.StatusClassifying, errors.New("again"), false)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestFailRecordsStageAndRetryability(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)

	state, err := m.Fail(ctx, "doc-1", models.StatusExtracting, errors.New("throttled"), true)
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, state.Status)
	assert.Equal(t, 100, state.Progress)
	assert.True(t, state.Retryable)
	assert.Contains(t, state.LastError, "extracting")
	assert.Contains(t, state.LastError, "throttled")
}

func TestOverrideWinsOverInFlightPipeline(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)

	// Manual decision lands while the worker is mid-pipeline.
	state, err := m.Override(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)

	// The worker's next transition is rejected; the override stands.
	_, err = m.Advance(ctx, "doc-1", models.StatusClassifying)
	assert.ErrorIs(t, err, ErrTerminal)

	got, err := m.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestOverrideCreatesRecordForUnknownDocument(t *testing.T) {
	m := newTestMachine(2)

	state, err := m.Override(context.Background(), "doc-unseen")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.Equal(t, 1, state.Generation)
}

func TestResubmitOpensNewGeneration(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)
	failed, err := m.Fail(ctx, "doc-1", models.StatusExtracting, errors.New("throttled"), true)
	require.NoError(t, err)
	require.True(t, m.CanRetry(failed))

	state, err := m.Resubmit(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, 2, state.Generation)
	assert.Equal(t, 1, state.RetryCount)
	assert.Equal(t, models.StatusPending, state.Status)
	assert.Empty(t, state.LastError)
}

func TestResubmitRejectsCompletedDocument(t *testing.T) {
	m := newTestMachine(2)
	ctx := context.Background()

	_, err := m.Override(ctx, "doc-1")
	require.NoError(t, err)

	_, err = m.Resubmit(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResubmitExhaustsRetryBudget(t *testing.T) {
	m := newTestMachine(1)
	ctx := context.Background()

	_, err := m.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)
	_, err = m.Fail(ctx, "doc-1", models.StatusExtracting, errors.New("boom"), true)
	require.NoError(t, err)

	// First resubmission consumes the whole budget.
	_, err = m.Resubmit(ctx, "doc-1")
	require.NoError(t, err)
	_, err = m.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)
	failed, err := m.Fail(ctx, "doc-1", models.StatusExtracting, errors.New("boom"), true)
	require.NoError(t, err)

	assert.False(t, m.CanRetry(failed))
	_, err = m.Resubmit(ctx, "doc-1")
	assert.Error(t, err)
}

func TestCanRetryRequiresRetryableFailure(t *testing.T) {
	m := newTestMachine(2)

	assert.False(t, m.CanRetry(nil))
	assert.False(t, m.CanRetry(&models.PipelineState{Status: models.StatusCompleted}))
	assert.False(t, m.CanRetry(&models.PipelineState{Status: models.StatusFailed, Retryable: false}))
	assert.True(t, m.CanRetry(&models.PipelineState{Status: models.StatusFailed, Retryable: true, RetryCount: 1}))
	assert.False(t, m.CanRetry(&models.PipelineState{Status: models.StatusFailed, Retryable: true, RetryCount: 2}))
}
