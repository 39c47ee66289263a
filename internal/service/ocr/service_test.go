package ocr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/agent/classify"
	"github.com/feichai0017/docfiler/internal/agent/extract"
	"github.com/feichai0017/docfiler/internal/agent/normalize"
	"github.com/feichai0017/docfiler/internal/folder"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/pipeline"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
)

// fakeBlobStore serves canned bytes for any key.
type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return key, nil
}

func (s *fakeBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.blobs[key]
	s.mu.Unlock()
	if !ok {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, key string) error { return nil }

func (s *fakeBlobStore) CleanupBefore(ctx context.Context, threshold time.Time) error { return nil }

// fakeExtractor returns per-file responses keyed by file name; names with
// no script entry get the default result. An optional hook runs on every
// call, letting tests interleave work mid-pipeline.
type fakeExtractor struct {
	mu       sync.Mutex
	byFile   map[string]error
	defaults *models.ExtractionResult
	calls    map[string]int
	hook     func()
}

func newFakeExtractor(text string) *fakeExtractor {
	return &fakeExtractor{
		byFile:   make(map[string]error),
		defaults: &models.ExtractionResult{Text: text, Confidence: 0.95, PageCount: 1},
		calls:    make(map[string]int),
	}
}

func (f *fakeExtractor) failWith(fileName string, err error) {
	f.mu.Lock()
	f.byFile[fileName] = err
	f.mu.Unlock()
}

func (f *fakeExtractor) callCount(fileName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fileName]
}

func (f *fakeExtractor) Extract(ctx context.Context, req extract.Request) (*models.ExtractionResult, error) {
	f.mu.Lock()
	f.calls[req.FileName]++
	err := f.byFile[req.FileName]
	hook := f.hook
	result := *f.defaults
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (f *fakeExtractor) CanProcess(string) bool { return true }

func testConfig() *models.OCRConfig {
	return &models.OCRConfig{
		ConfidenceThreshold: 0.7,
		AutoSortEnabled:     true,
		MaxPagesPerDocument: 10,
		MaxRetries:          2,
		BatchConcurrency:    2,
	}
}

func newTestService(t *testing.T, extractor extract.Extractor) (*Service, *fakeBlobStore) {
	t.Helper()
	log := logger.NewTestLogger()
	store := newFakeBlobStore()
	svc := NewService(
		testConfig(),
		store,
		extractor,
		classify.NewReconciler(0.7, log),
		normalize.NewNormalizer(log),
		folder.NewResolver(folder.NewMemoryStore(), log),
		pipeline.NewMachine(pipeline.NewMemoryStore(), 2, log),
		nil,
		log,
	)
	return svc, store
}

func w2Request(documentID string) models.OCRProcessRequest {
	return models.OCRProcessRequest{
		DocumentID: documentID,
		StorageKey: "vaults/v1/documents/" + documentID + "/w2.pdf",
		FileName:   "w2.pdf",
		MimeType:   "application/pdf",
		Vault:      models.VaultPersonal,
		VaultID:    "v1",
	}
}

const w2Text = "Form W-2 Wage and Tax Statement. Wages, tips, other compensation."

func TestProcessCompletesAndFiles(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))

	result, err := svc.Process(context.Background(), w2Request("doc-1"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, result.Status)
	require.NotNil(t, result.Classification)
	assert.Equal(t, models.SubtypeW2, result.Classification.Subtype)
	require.NotNil(t, result.Target)
	assert.True(t, result.Target.Created)
	assert.Equal(t, "W2", result.Target.Name)

	state, err := svc.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.Equal(t, 100, state.Progress)
}

func TestProcessWithAutoSortDisabledSkipsFiling(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))

	req := w2Request("doc-1")
	off := false
	req.AutoSort = &off

	result, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.NotNil(t, result.Classification)
	assert.Nil(t, result.Target)
}

func TestProcessRecordsPermanentFailure(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	extractor.failWith("w2.pdf", &extract.ExtractionError{
		Op: "detect_text", Retryable: false, Err: errors.New("unsupported document"),
	})
	svc, _ := newTestService(t, extractor)

	result, err := svc.Process(context.Background(), w2Request("doc-1"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.False(t, result.Retryable)
	assert.Contains(t, result.Error, "unsupported document")

	state, err := svc.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, state.Status)
	assert.False(t, state.Retryable)
}

func TestProcessCompletedDocumentIsIdempotent(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	svc, _ := newTestService(t, extractor)
	ctx := context.Background()

	_, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)

	// A redelivered task acknowledges cleanly without re-running anything.
	result, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Equal(t, 1, extractor.callCount("w2.pdf"))
}

func TestProcessResumesFromPersistedStage(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))
	ctx := context.Background()

	// A crashed worker left the record parked mid-pipeline.
	_, err := svc.machine.Begin(ctx, "doc-1")
	require.NoError(t, err)
	_, err = svc.machine.Advance(ctx, "doc-1", models.StatusExtracting)
	require.NoError(t, err)
	_, err = svc.machine.Advance(ctx, "doc-1", models.StatusClassifying)
	require.NoError(t, err)

	result, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Status)

	state, err := svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)
}

func TestProcessResubmitsRetryableFailure(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	extractor.failWith("w2.pdf", &extract.ExtractionError{
		Op: "detect_text", Retryable: true, Err: errors.New("throttled"),
	})
	svc, _ := newTestService(t, extractor)
	ctx := context.Background()

	result, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, result.Status)
	require.True(t, result.Retryable)

	// The queue redelivers; the run resubmits the failed record on its own.
	extractor.failWith("w2.pdf", nil)
	result, err = svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Status)

	state, err := svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Generation)
	assert.Equal(t, 1, state.RetryCount)
}

func TestProcessStopsResubmittingWhenBudgetExhausted(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	extractor.failWith("w2.pdf", &extract.ExtractionError{
		Op: "detect_text", Retryable: true, Err: errors.New("throttled"),
	})
	svc, _ := newTestService(t, extractor)
	ctx := context.Background()

	// MaxRetries is 2: the first run plus two resubmissions burn the budget.
	for i := 0; i < 3; i++ {
		result, err := svc.Process(ctx, w2Request("doc-1"))
		require.NoError(t, err)
		require.Equal(t, models.StatusFailed, result.Status)
		require.True(t, result.Retryable)
	}

	result, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.False(t, result.Retryable, "an exhausted budget must stop the retry loop")
	assert.Equal(t, 3, extractor.callCount("w2.pdf"))

	state, err := svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, state.Generation)
	assert.Equal(t, 2, state.RetryCount)
}

func TestRetryAfterTransientFailure(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	extractor.failWith("w2.pdf", &extract.ExtractionError{
		Op: "detect_text", Retryable: true, Err: errors.New("throttled"),
	})
	svc, _ := newTestService(t, extractor)
	ctx := context.Background()

	result, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, result.Status)
	assert.True(t, result.Retryable)

	// The engine recovers; the retry runs under a new generation.
	extractor.failWith("w2.pdf", nil)
	result, err = svc.Retry(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Status)

	state, err := svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Generation)
	assert.Equal(t, 1, state.RetryCount)
}

func TestRetryRejectsUnknownDocument(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))

	_, err := svc.Retry(context.Background(), w2Request("doc-never-seen"))
	assert.Error(t, err)
}

func TestOverrideWinsOverPipeline(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	svc, _ := newTestService(t, extractor)
	ctx := context.Background()

	state, err := svc.Override(ctx, models.ManualOverrideRequest{
		DocumentID: "doc-1",
		Category:   models.CategoryIdentity,
		Subtype:    models.SubtypePassport,
		Vault:      models.VaultPersonal,
		VaultID:    "v1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)

	// The automatic pipeline arriving later acknowledges the manual
	// decision without re-running anything.
	result, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Zero(t, extractor.callCount("w2.pdf"))
}

func TestOverrideMidPipelineStopsRunQuietly(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	svc, _ := newTestService(t, extractor)
	ctx := context.Background()

	// The manual decision lands while the document is being extracted.
	extractor.hook = func() {
		_, err := svc.Override(ctx, models.ManualOverrideRequest{
			DocumentID: "doc-1",
			Category:   models.CategoryIdentity,
			Subtype:    models.SubtypePassport,
			Vault:      models.VaultPersonal,
			VaultID:    "v1",
		})
		require.NoError(t, err)
	}

	result, err := svc.Process(ctx, w2Request("doc-1"))
	require.NoError(t, err, "a lost override race is not a processing failure")
	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Nil(t, result.Target, "the manual filing decision stands")

	state, err := svc.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, state.Status)
}

func TestOverrideRejectsUnknownSubtype(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))

	_, err := svc.Override(context.Background(), models.ManualOverrideRequest{
		DocumentID: "doc-1",
		Category:   models.CategoryIdentity,
		Subtype:    models.DocumentSubtype("not_a_subtype"),
	})
	assert.ErrorContains(t, err, "unknown subtype")
}

func TestPreviewLeavesNoPipelineState(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))
	ctx := context.Background()

	result, err := svc.Preview(ctx, w2Request("doc-1"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, result.Status)
	require.NotNil(t, result.Classification)
	assert.Equal(t, models.SubtypeW2, result.Classification.Subtype)
	assert.Nil(t, result.Target)

	_, err = svc.Status(ctx, "doc-1")
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	extractor := newFakeExtractor(w2Text)
	extractor.failWith("bad.pdf", &extract.ExtractionError{
		Op: "detect_text", Retryable: false, Err: errors.New("corrupt file"),
	})
	svc, _ := newTestService(t, extractor)

	req := models.BatchOCRRequest{
		BatchID: "batch-1",
		Documents: []models.OCRProcessRequest{
			w2Request("doc-1"),
			{
				DocumentID: "doc-2",
				StorageKey: "vaults/v1/documents/doc-2/bad.pdf",
				FileName:   "bad.pdf",
				Vault:      models.VaultPersonal,
				VaultID:    "v1",
			},
			w2Request("doc-3"),
		},
	}

	result, err := svc.ProcessBatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "batch-1", result.BatchID)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Cancelled)
	assert.Equal(t, 2, result.TotalPages, "only extracted documents contribute pages")
	assert.Len(t, result.Results, 3)
}

func TestProcessBatchGeneratesBatchID(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))

	result, err := svc.ProcessBatch(context.Background(), models.BatchOCRRequest{
		Documents: []models.OCRProcessRequest{w2Request("doc-1")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.BatchID)
}

func TestProcessBatchCancelledBeforeDispatch(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := models.BatchOCRRequest{
		Documents: []models.OCRProcessRequest{
			w2Request("doc-1"),
			w2Request("doc-2"),
			w2Request("doc-3"),
		},
	}

	result, err := svc.ProcessBatch(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Cancelled)
	assert.Zero(t, result.Succeeded)
	for _, r := range result.Results {
		assert.True(t, r.Retryable, "cancelled documents must stay retryable")
	}
}

// fakeQueue records enqueued tasks.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []*queue.Task
}

func (q *fakeQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	return nil
}

func (q *fakeQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	return &queue.TaskStatus{TaskID: taskID, Status: "pending"}, nil
}

func (q *fakeQueue) CancelTask(ctx context.Context, taskID string) error { return nil }

func (q *fakeQueue) SaveFinalStatus(ctx context.Context, status *queue.TaskStatus) error { return nil }

func (q *fakeQueue) PublishProgress(ctx context.Context, vaultID string, update *models.OCRProgressUpdate) error {
	return nil
}

func (q *fakeQueue) IncrementUsage(ctx context.Context, vaultID string, pages int) error { return nil }

func TestValidateFile(t *testing.T) {
	svc, _ := newTestService(t, newFakeExtractor(w2Text))

	tests := []struct {
		name     string
		fileName string
		size     int64
		wantErr  bool
	}{
		{"pdf accepted", "doc.pdf", 1024, false},
		{"jpeg accepted", "scan.JPG", 1024, false},
		{"executable rejected", "malware.exe", 1024, true},
		{"no extension rejected", "README", 1024, true},
		{"oversized rejected", "huge.pdf", maxFileSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.validateFile(&multipart.FileHeader{Filename: tt.fileName, Size: tt.size})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// memoryFile adapts a bytes.Reader to multipart.File.
type memoryFile struct {
	*bytes.Reader
}

func (memoryFile) Close() error { return nil }

func TestUploadStoresBlobAndEnqueues(t *testing.T) {
	log := logger.NewTestLogger()
	store := newFakeBlobStore()
	q := &fakeQueue{}
	svc := NewService(
		testConfig(),
		store,
		newFakeExtractor(w2Text),
		classify.NewReconciler(0.7, log),
		normalize.NewNormalizer(log),
		folder.NewResolver(folder.NewMemoryStore(), log),
		pipeline.NewMachine(pipeline.NewMemoryStore(), 2, log),
		q,
		log,
	)

	content := []byte("%PDF-1.4 fake")
	file := memoryFile{bytes.NewReader(content)}
	header := &multipart.FileHeader{Filename: "w2.pdf", Size: int64(len(content))}

	task, err := svc.Upload(context.Background(), file, header, models.VaultPersonal, "v1")
	require.NoError(t, err)

	assert.Equal(t, queue.TaskTypeOCRProcess, task.Type)
	assert.Equal(t, task.ID, task.Request.DocumentID)
	assert.Contains(t, task.Request.StorageKey, "vaults/v1/documents/")
	assert.Equal(t, "w2.pdf", task.Request.FileName)

	// Blob persisted under the task's key.
	blob, err := store.Get(context.Background(), task.Request.StorageKey)
	require.NoError(t, err)
	stored, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, task.ID, q.tasks[0].ID)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	log := logger.NewTestLogger()
	svc := NewService(
		testConfig(),
		newFakeBlobStore(),
		newFakeExtractor(w2Text),
		classify.NewReconciler(0.7, log),
		normalize.NewNormalizer(log),
		folder.NewResolver(folder.NewMemoryStore(), log),
		pipeline.NewMachine(pipeline.NewMemoryStore(), 2, log),
		&fakeQueue{},
		log,
	)

	file := memoryFile{bytes.NewReader([]byte("MZ"))}
	header := &multipart.FileHeader{Filename: "tool.exe", Size: 2}

	_, err := svc.Upload(context.Background(), file, header, models.VaultPersonal, "v1")
	assert.ErrorContains(t, err, "unsupported file type")
}
