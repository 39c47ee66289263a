package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/ocr"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
)

// OCRWorker consumes queued documents and drives them through the
// processing pipeline.
type OCRWorker struct {
	BaseWorker
	service ocr.Processor
}

func NewOCRWorker(cfg *Config, service ocr.Processor, log logger.Logger) (*OCRWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &OCRWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		service: service,
	}

	w.registerHandlers()
	return w, nil
}

func (w *OCRWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeOCRProcess, w.handleProcess)
}

func (w *OCRWorker) handleProcess(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	if task.ID == "" || task.Request.DocumentID == "" || task.Request.StorageKey == "" {
		return fmt.Errorf("invalid task data: missing required fields")
	}

	w.logger.Info("Processing document task",
		logger.String("task_id", task.ID),
		logger.String("document_id", task.Request.DocumentID),
		logger.String("file_name", task.Request.FileName),
	)

	info := t.ResultWriter()
	if _, err := info.Write([]byte(`{"status":"running","progress":0}`)); err != nil {
		w.logger.Error("Failed to write task status", logger.Error(err))
	}

	result, err := w.service.Process(ctx, task.Request)
	if err != nil {
		if _, writeErr := info.Write([]byte(fmt.Sprintf(`{"status":"failed","error":%q}`, err.Error()))); writeErr != nil {
			w.logger.Error("Failed to write task failure", logger.Error(writeErr))
		}
		return err
	}

	if result.Status == models.StatusFailed {
		if _, writeErr := info.Write([]byte(fmt.Sprintf(`{"status":"failed","error":%q}`, result.Error))); writeErr != nil {
			w.logger.Error("Failed to write task failure", logger.Error(writeErr))
		}
		// A retryable failure goes back to asynq; on redelivery the
		// pipeline resubmits the persisted record under a new generation.
		// A non-retryable document must not bounce through the retry
		// loop; completing the task keeps the terminal state in charge.
		if result.Retryable {
			return fmt.Errorf("document processing failed: %s", result.Error)
		}
		return nil
	}

	if _, err := info.Write([]byte(`{"status":"completed","progress":100}`)); err != nil {
		w.logger.Error("Failed to write task completion", logger.Error(err))
	}

	return nil
}

func (w *OCRWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
