package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/agent/classify"
	"github.com/feichai0017/docfiler/internal/agent/extract"
	"github.com/feichai0017/docfiler/internal/agent/normalize"
	"github.com/feichai0017/docfiler/internal/folder"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/pipeline"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/metrics"
	"github.com/feichai0017/docfiler/pkg/queue"
	"github.com/feichai0017/docfiler/pkg/storage"
)

var allowedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".tiff"}

const maxFileSize = 50 * 1024 * 1024 // 50MB

// errSuperseded marks a run that lost the race to a manual override. The
// document is filed; the run stops quietly and reports completion.
var errSuperseded = errors.New("pipeline superseded by manual override")

// Processor is the document auto-filing engine's service surface.
type Processor interface {
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, vault models.VaultContext, vaultID string) (*queue.Task, error)
	Process(ctx context.Context, req models.OCRProcessRequest) (*models.OCRResult, error)
	ProcessBatch(ctx context.Context, req models.BatchOCRRequest) (*models.BatchOCRResult, error)
	Preview(ctx context.Context, req models.OCRProcessRequest) (*models.OCRResult, error)
	Retry(ctx context.Context, req models.OCRProcessRequest) (*models.OCRResult, error)
	Override(ctx context.Context, req models.ManualOverrideRequest) (*models.PipelineState, error)
	Status(ctx context.Context, documentID string) (*models.PipelineState, error)
}

// Service runs documents through extract -> classify -> normalize ->
// resolve -> sort, recording every stage in the pipeline machine.
type Service struct {
	cfg        *models.OCRConfig
	store      storage.Storage
	extractor  extract.Extractor
	classifier *classify.Reconciler
	normalizer *normalize.Normalizer
	resolver   *folder.Resolver
	machine    *pipeline.Machine
	queue      queue.Queue
	logger     logger.Logger
}

func NewService(
	cfg *models.OCRConfig,
	store storage.Storage,
	extractor extract.Extractor,
	classifier *classify.Reconciler,
	normalizer *normalize.Normalizer,
	resolver *folder.Resolver,
	machine *pipeline.Machine,
	q queue.Queue,
	log logger.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		extractor:  extractor,
		classifier: classifier,
		normalizer: normalizer,
		resolver:   resolver,
		machine:    machine,
		queue:      q,
		logger:     log,
	}
}

// GetService wires the default production stack: S3 blobs, Textract with
// retry, redis pipeline state, asynq queue.
func GetService(log logger.Logger) (*Service, error) {
	cfg := config.GetEngineConfig()

	store, err := storage.NewStorage(storage.StorageTypeS3, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	var engine extract.Extractor
	switch config.GetExtractionEngine() {
	case "local":
		engine = extract.NewLocalExtractor("eng", log)
	default:
		engine, err = extract.NewTextractExtractor(
			context.Background(),
			config.GetTextractConfig(),
			config.GetS3Config().BucketName,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize extractor: %w", err)
		}
	}
	extractor := extract.NewRetryingExtractor(engine, cfg.MaxRetries+1, time.Second, log)

	// Folder trees and pipeline records share the redis instance so the
	// server and worker binaries see the same state.
	redisCfg := config.GetRedisConfig()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	return NewService(
		cfg,
		store,
		extractor,
		classify.NewReconciler(cfg.ConfidenceThreshold, log),
		normalize.NewNormalizer(log),
		folder.NewResolver(folder.NewRedisStore(redisClient), log),
		pipeline.NewMachine(pipeline.NewRedisStore(redisClient), cfg.MaxRetries, log),
		q,
		log,
	), nil
}

// Upload validates and stores the blob, then enqueues a processing task.
func (s *Service) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, vault models.VaultContext, vaultID string) (*queue.Task, error) {
	if err := s.validateFile(header); err != nil {
		return nil, err
	}

	documentID := uuid.New().String()
	key := storage.VaultKey(vaultID, documentID, header.Filename)

	if _, err := s.store.Store(ctx, file, key); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	task := &queue.Task{
		ID:   documentID,
		Type: queue.TaskTypeOCRProcess,
		Request: models.OCRProcessRequest{
			DocumentID: documentID,
			StorageKey: key,
			FileName:   header.Filename,
			MimeType:   header.Header.Get("Content-Type"),
			Vault:      vault,
			VaultID:    vaultID,
		},
		Priority:  2,
		CreatedAt: time.Now(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to enqueue document: %w", err)
	}

	s.logger.Info("document uploaded",
		logger.String("document_id", documentID),
		logger.String("file_name", header.Filename),
		logger.String("vault_id", vaultID))
	return task, nil
}

func (s *Service) validateFile(header *multipart.FileHeader) error {
	if header.Size > maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max %d)", header.Size, maxFileSize)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported file type: %s", ext)
}

// Process runs one document through the full pipeline. A failed stage
// records a terminal failed state; the returned result always reflects
// what was persisted. Redelivered documents resume: a record parked at a
// mid-pipeline stage is driven forward from there, a failed record with
// retry budget left is resubmitted under a new generation, and a record
// that is already terminal acknowledges without re-running anything.
func (s *Service) Process(ctx context.Context, req models.OCRProcessRequest) (*models.OCRResult, error) {
	started := time.Now()
	result := &models.OCRResult{
		DocumentID:  req.DocumentID,
		FileName:    req.FileName,
		ProcessedAt: started,
	}

	state, err := s.machine.Begin(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to open pipeline: %w", err)
	}
	switch state.Status {
	case models.StatusCompleted:
		result.Status = models.StatusCompleted
		result.Duration = time.Since(started)
		return result, nil
	case models.StatusFailed:
		if !s.machine.CanRetry(state) {
			result.Status = models.StatusFailed
			result.Error = state.LastError
			result.Retryable = false
			result.Duration = time.Since(started)
			return result, nil
		}
		if _, err := s.machine.Resubmit(ctx, req.DocumentID); err != nil {
			return nil, fmt.Errorf("failed to resubmit document: %w", err)
		}
	}

	// Extract
	if err := s.advance(ctx, req, models.StatusExtracting); err != nil {
		return s.settle(result, started, err)
	}
	extraction, err := s.runExtraction(ctx, req)
	if err != nil {
		return s.failResult(ctx, req, result, models.StatusExtracting, err, extract.IsRetryable(err))
	}
	result.Extraction = extraction
	metrics.PagesExtracted.Add(float64(extraction.PageCount))

	// Classify + normalize
	if err := s.advance(ctx, req, models.StatusClassifying); err != nil {
		return s.settle(result, started, err)
	}
	classification, metadata := s.classifyAndNormalize(ctx, req, extraction)
	result.Classification = &classification
	result.Metadata = metadata
	if classification.NeedsReview {
		metrics.DocumentsNeedingReview.Inc()
	}

	autoSort := s.cfg.AutoSortEnabled
	if req.AutoSort != nil {
		autoSort = *req.AutoSort
	}
	if !autoSort {
		return s.completeResult(ctx, req, result, started)
	}

	// Resolve destination
	if err := s.advance(ctx, req, models.StatusCreatingFolders); err != nil {
		return s.settle(result, started, err)
	}
	ref := folder.VaultRef{Context: req.Vault, VaultID: req.VaultID}
	target, err := s.resolver.Resolve(ctx, ref, classification, metadata)
	if err != nil {
		return s.failResult(ctx, req, result, models.StatusCreatingFolders, err, true)
	}
	result.Target = &target
	if target.Created {
		metrics.FoldersCreated.Inc()
	}

	// Sort: the filing decision is recorded; the document store moves the
	// blob when it consumes the result.
	if err := s.advance(ctx, req, models.StatusSorting); err != nil {
		return s.settle(result, started, err)
	}

	return s.completeResult(ctx, req, result, started)
}

// Preview runs extraction, classification and normalization without
// touching folders or pipeline state.
func (s *Service) Preview(ctx context.Context, req models.OCRProcessRequest) (*models.OCRResult, error) {
	started := time.Now()

	extraction, err := s.runExtraction(ctx, req)
	if err != nil {
		return nil, err
	}
	classification, metadata := s.classifyAndNormalize(ctx, req, extraction)

	return &models.OCRResult{
		DocumentID:     req.DocumentID,
		FileName:       req.FileName,
		Status:         models.StatusCompleted,
		Extraction:     extraction,
		Classification: &classification,
		Metadata:       metadata,
		ProcessedAt:    started,
		Duration:       time.Since(started),
	}, nil
}

// Retry resubmits a failed document under a new generation.
func (s *Service) Retry(ctx context.Context, req models.OCRProcessRequest) (*models.OCRResult, error) {
	if _, err := s.machine.Resubmit(ctx, req.DocumentID); err != nil {
		return nil, err
	}
	return s.Process(ctx, req)
}

// Override applies a manual filing decision. The chosen folder (or the
// canonical path for the chosen subtype) wins over anything the automatic
// pipeline may still be doing.
func (s *Service) Override(ctx context.Context, req models.ManualOverrideRequest) (*models.PipelineState, error) {
	if _, ok := models.CategoryOf(req.Subtype); !ok {
		return nil, fmt.Errorf("unknown subtype %q", req.Subtype)
	}

	if req.FolderID == "" {
		ref := folder.VaultRef{Context: req.Vault, VaultID: req.VaultID}
		classification := models.ClassificationResult{
			Category: req.Category,
			Subtype:  req.Subtype,
		}
		if _, err := s.resolver.Resolve(ctx, ref, classification, nil); err != nil {
			return nil, fmt.Errorf("failed to resolve override folder: %w", err)
		}
	}

	state, err := s.machine.Override(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual override applied",
		logger.String("document_id", req.DocumentID),
		logger.String("category", string(req.Category)),
		logger.String("subtype", string(req.Subtype)))
	return state, nil
}

// Status returns the document's pipeline record.
func (s *Service) Status(ctx context.Context, documentID string) (*models.PipelineState, error) {
	return s.machine.Get(ctx, documentID)
}

func (s *Service) runExtraction(ctx context.Context, req models.OCRProcessRequest) (*models.ExtractionResult, error) {
	stageStart := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(models.StatusExtracting)).Observe(time.Since(stageStart).Seconds())
	}()

	blob, err := s.store.Get(ctx, req.StorageKey)
	if err != nil {
		return nil, &extract.ExtractionError{Op: "fetch_blob", Retryable: true, Err: err}
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return nil, &extract.ExtractionError{Op: "read_blob", Retryable: true, Err: err}
	}

	return s.extractor.Extract(ctx, extract.Request{
		StorageKey:            req.StorageKey,
		FileName:              req.FileName,
		MimeType:              req.MimeType,
		Data:                  data,
		PageLimit:             s.cfg.MaxPagesPerDocument,
		EnableIDDetection:     s.cfg.EnableIDDetection,
		EnableExpenseAnalysis: s.cfg.EnableExpenseAnalysis,
	})
}

func (s *Service) classifyAndNormalize(ctx context.Context, req models.OCRProcessRequest, extraction *models.ExtractionResult) (models.ClassificationResult, *models.ExtractedMetadata) {
	stageStart := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(models.StatusClassifying)).Observe(time.Since(stageStart).Seconds())
	}()

	var hints classify.FolderHints
	ref := folder.VaultRef{Context: req.Vault, VaultID: req.VaultID}
	if h, err := s.resolver.HintsFor(ctx, ref); err == nil {
		hints = h
	} else {
		s.logger.Warn("folder hints unavailable",
			logger.String("vault_id", req.VaultID),
			logger.Error(err))
	}

	classification := s.classifier.Classify(extraction, req.FileName, req.Vault, hints)
	metadata := s.normalizer.Normalize(extraction, classification)
	return classification, metadata
}

// advance persists the stage move and publishes progress. Records already
// at or past the stage pass through untouched, so a redelivered document
// re-runs its work without tripping over transitions it already made. A
// completed record means an override won the race; the run stops quietly.
func (s *Service) advance(ctx context.Context, req models.OCRProcessRequest, status models.OCRStatus) error {
	state, err := s.machine.Ensure(ctx, req.DocumentID, status)
	if err != nil {
		if errors.Is(err, pipeline.ErrTerminal) && state != nil && state.Status == models.StatusCompleted {
			s.logger.Info("pipeline superseded by manual override",
				logger.String("document_id", req.DocumentID))
			return errSuperseded
		}
		return err
	}
	s.publishProgress(ctx, req, state)
	return nil
}

// settle turns a lost override race into a completed result; every other
// advance error propagates.
func (s *Service) settle(result *models.OCRResult, started time.Time, err error) (*models.OCRResult, error) {
	if errors.Is(err, errSuperseded) {
		result.Status = models.StatusCompleted
		result.Duration = time.Since(started)
		return result, nil
	}
	return nil, err
}

func (s *Service) publishProgress(ctx context.Context, req models.OCRProcessRequest, state *models.PipelineState) {
	if s.queue == nil {
		return
	}
	update := &models.OCRProgressUpdate{
		DocumentID: req.DocumentID,
		Status:     state.Status,
		Progress:   state.Progress,
		UpdatedAt:  state.UpdatedAt,
	}
	if err := s.queue.PublishProgress(ctx, req.VaultID, update); err != nil {
		s.logger.Warn("failed to publish progress",
			logger.String("document_id", req.DocumentID),
			logger.Error(err))
	}
}

func (s *Service) completeResult(ctx context.Context, req models.OCRProcessRequest, result *models.OCRResult, started time.Time) (*models.OCRResult, error) {
	state, err := s.machine.Ensure(ctx, req.DocumentID, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	s.publishProgress(ctx, req, state)

	result.Status = models.StatusCompleted
	result.Duration = time.Since(started)
	metrics.DocumentsProcessed.WithLabelValues(string(models.StatusCompleted)).Inc()

	if s.queue != nil && result.Extraction != nil {
		if err := s.queue.IncrementUsage(ctx, req.VaultID, result.Extraction.PageCount); err != nil {
			s.logger.Warn("failed to record usage",
				logger.String("vault_id", req.VaultID),
				logger.Error(err))
		}
	}

	s.logger.Info("document processed",
		logger.String("document_id", req.DocumentID),
		logger.Duration("duration", result.Duration))
	return result, nil
}

func (s *Service) failResult(ctx context.Context, req models.OCRProcessRequest, result *models.OCRResult, stage models.OCRStatus, cause error, retryable bool) (*models.OCRResult, error) {
	state, err := s.machine.Fail(ctx, req.DocumentID, stage, cause, retryable)
	if err != nil {
		s.logger.Error("failed to record pipeline failure",
			logger.String("document_id", req.DocumentID),
			logger.Error(err))
	} else {
		s.publishProgress(ctx, req, state)
	}

	result.Status = models.StatusFailed
	result.Error = cause.Error()
	result.Retryable = retryable
	result.Duration = time.Since(result.ProcessedAt)
	metrics.DocumentsProcessed.WithLabelValues(string(models.StatusFailed)).Inc()
	return result, nil
}
