package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

var (
	// ErrTerminal is returned when a transition is attempted on a
	// completed or failed document.
	ErrTerminal = errors.New("pipeline state is terminal")
	// ErrInvalidTransition is returned for backward or unknown moves.
	ErrInvalidTransition = errors.New("invalid pipeline transition")
)

// statusRank orders the pipeline stages; transitions must move forward.
var statusRank = map[models.OCRStatus]int{
	models.StatusPending:         0,
	models.StatusExtracting:      1,
	models.StatusClassifying:     2,
	models.StatusCreatingFolders: 3,
	models.StatusSorting:         4,
	models.StatusCompleted:       5,
	models.StatusFailed:          5,
}

// progressByStatus maps each stage to the percentage surfaced to clients.
var progressByStatus = map[models.OCRStatus]int{
	models.StatusPending:         5,
	models.StatusExtracting:      30,
	models.StatusClassifying:     55,
	models.StatusCreatingFolders: 75,
	models.StatusSorting:         90,
	models.StatusCompleted:       100,
	models.StatusFailed:          100,
}

// ProgressFor returns the client-facing progress for a stage.
func ProgressFor(status models.OCRStatus) int {
	return progressByStatus[status]
}

// Machine drives per-document pipeline records. Every transition is
// persisted before it is acknowledged, so a crashed worker resumes from
// the last recorded stage instead of restarting silently.
type Machine struct {
	store      StateStore
	maxRetries int
	logger     logger.Logger

	mu       sync.Mutex
	docLocks map[string]*sync.Mutex
}

func NewMachine(store StateStore, maxRetries int, log logger.Logger) *Machine {
	return &Machine{
		store:      store,
		maxRetries: maxRetries,
		logger:     log,
		docLocks:   make(map[string]*sync.Mutex),
	}
}

func (m *Machine) docLock(documentID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.docLocks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		m.docLocks[documentID] = lock
	}
	return lock
}

// Begin loads or creates the document's pipeline record. A fresh document
// starts at pending, generation 1. Terminal records are returned as-is;
// resubmission goes through Resubmit.
func (m *Machine) Begin(ctx context.Context, documentID string) (*models.PipelineState, error) {
	lock := m.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.store.Get(ctx, documentID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	state = &models.PipelineState{
		DocumentID: documentID,
		Generation: 1,
		Status:     models.StatusPending,
		Progress:   ProgressFor(models.StatusPending),
		UpdatedAt:  time.Now(),
	}
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Advance moves the document to the next stage. The move is persisted
// before Advance returns; forward-only, terminal states are immutable.
func (m *Machine) Advance(ctx context.Context, documentID string, next models.OCRStatus) (*models.PipelineState, error) {
	lock := m.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if state.Status.IsTerminal() {
		return state, fmt.Errorf("%w: %s", ErrTerminal, state.Status)
	}

	nextRank, ok := statusRank[next]
	if !ok || nextRank <= statusRank[state.Status] {
		return state, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, state.Status, next)
	}

	state.Status = next
	state.Progress = ProgressFor(next)
	state.UpdatedAt = time.Now()
	if next == models.StatusCompleted {
		state.LastError = ""
		state.Retryable = false
	}
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}

	m.logger.Debug("pipeline advanced",
		logger.String("document_id", documentID),
		logger.String("status", string(next)),
		logger.Int("progress", state.Progress))
	return state, nil
}

// Ensure moves the document forward to next, treating a record already at
// or past that stage as success. Redelivered documents resume from the
// persisted stage instead of tripping over transitions they already made.
// Terminal records still reject every move except re-asserting completed.
func (m *Machine) Ensure(ctx context.Context, documentID string, next models.OCRStatus) (*models.PipelineState, error) {
	lock := m.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	nextRank, ok := statusRank[next]
	if !ok {
		return state, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, state.Status, next)
	}
	if state.Status == next {
		return state, nil
	}
	if state.Status.IsTerminal() {
		return state, fmt.Errorf("%w: %s", ErrTerminal, state.Status)
	}
	if nextRank <= statusRank[state.Status] {
		return state, nil
	}

	state.Status = next
	state.Progress = ProgressFor(next)
	state.UpdatedAt = time.Now()
	if next == models.StatusCompleted {
		state.LastError = ""
		state.Retryable = false
	}
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}

	m.logger.Debug("pipeline advanced",
		logger.String("document_id", documentID),
		logger.String("status", string(next)),
		logger.Int("progress", state.Progress))
	return state, nil
}

// Fail records a terminal failure with its retryability verdict.
func (m *Machine) Fail(ctx context.Context, documentID string, stage models.OCRStatus, cause error, retryable bool) (*models.PipelineState, error) {
	lock := m.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if state.Status.IsTerminal() {
		return state, fmt.Errorf("%w: %s", ErrTerminal, state.Status)
	}

	state.Status = models.StatusFailed
	state.Progress = ProgressFor(models.StatusFailed)
	state.LastError = fmt.Sprintf("%s: %v", stage, cause)
	state.Retryable = retryable
	state.UpdatedAt = time.Now()
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}

	m.logger.Warn("pipeline failed",
		logger.String("document_id", documentID),
		logger.String("stage", string(stage)),
		logger.Bool("retryable", retryable),
		logger.Error(cause))
	return state, nil
}

// Override forces the document to completed after a manual filing
// decision. The override always wins over in-flight automatic processing:
// it is last-writer under the same per-document lock the worker uses, and
// once the record is terminal the worker's next transition is rejected.
func (m *Machine) Override(ctx context.Context, documentID string) (*models.PipelineState, error) {
	lock := m.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.store.Get(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		state = &models.PipelineState{
			DocumentID: documentID,
			Generation: 1,
		}
	} else if err != nil {
		return nil, err
	}

	state.Status = models.StatusCompleted
	state.Progress = ProgressFor(models.StatusCompleted)
	state.LastError = ""
	state.Retryable = false
	state.UpdatedAt = time.Now()
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}

	m.logger.Info("pipeline overridden", logger.String("document_id", documentID))
	return state, nil
}

// CanRetry reports whether a failed document may be resubmitted.
func (m *Machine) CanRetry(state *models.PipelineState) bool {
	return state != nil &&
		state.Status == models.StatusFailed &&
		state.Retryable &&
		state.RetryCount < m.maxRetries
}

// Resubmit opens a new generation for a failed document, returning it to
// pending. Completed documents cannot be resubmitted.
func (m *Machine) Resubmit(ctx context.Context, documentID string) (*models.PipelineState, error) {
	lock := m.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if state.Status != models.StatusFailed {
		return state, fmt.Errorf("%w: only failed documents can be resubmitted", ErrInvalidTransition)
	}
	if state.RetryCount >= m.maxRetries {
		return state, fmt.Errorf("retry budget exhausted for document %s", documentID)
	}

	state.Generation++
	state.RetryCount++
	state.Status = models.StatusPending
	state.Progress = ProgressFor(models.StatusPending)
	state.LastError = ""
	state.Retryable = false
	state.UpdatedAt = time.Now()
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}

	m.logger.Info("pipeline resubmitted",
		logger.String("document_id", documentID),
		logger.Int("generation", state.Generation),
		logger.Int("retry_count", state.RetryCount))
	return state, nil
}

// Get returns the current record for a document.
func (m *Machine) Get(ctx context.Context, documentID string) (*models.PipelineState, error) {
	return m.store.Get(ctx, documentID)
}
