package ocr

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// ProcessBatch fans the batch out over a bounded worker pool. Each
// document is its own failure domain: one failure never stops the others.
// Cancelling the context stops dispatching new documents; documents
// already in flight finish their current stage and are reported.
func (s *Service) ProcessBatch(ctx context.Context, req models.BatchOCRRequest) (*models.BatchOCRResult, error) {
	started := time.Now()

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}

	concurrency := s.cfg.BatchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	results := make([]models.OCRResult, 0, len(req.Documents))
	cancelled := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, doc := range req.Documents {
		doc := doc
		if gctx.Err() != nil {
			mu.Lock()
			cancelled++
			results = append(results, models.OCRResult{
				DocumentID: doc.DocumentID,
				FileName:   doc.FileName,
				Status:     models.StatusFailed,
				Error:      "batch cancelled before dispatch",
				Retryable:  true,
			})
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			result, err := s.Process(gctx, doc)
			if err != nil {
				// Pipeline bookkeeping failed; record the document as
				// failed but keep the batch going.
				result = &models.OCRResult{
					DocumentID: doc.DocumentID,
					FileName:   doc.FileName,
					Status:     models.StatusFailed,
					Error:      err.Error(),
					Retryable:  true,
				}
				s.logger.Error("batch document errored",
					logger.String("batch_id", batchID),
					logger.String("document_id", doc.DocumentID),
					logger.Error(err))
			}

			mu.Lock()
			results = append(results, *result)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only observes cancellation.
	_ = g.Wait()

	agg := &models.BatchOCRResult{
		BatchID:   batchID,
		Total:     len(req.Documents),
		Cancelled: cancelled,
		Results:   results,
		Duration:  time.Since(started),
	}
	for _, r := range results {
		switch r.Status {
		case models.StatusCompleted:
			agg.Succeeded++
		case models.StatusFailed:
			agg.Failed++
		}
		if r.Extraction != nil {
			agg.TotalPages += r.Extraction.PageCount
		}
	}
	agg.Failed -= agg.Cancelled

	s.logger.Info("batch complete",
		logger.String("batch_id", batchID),
		logger.Int("total", agg.Total),
		logger.Int("succeeded", agg.Succeeded),
		logger.Int("failed", agg.Failed),
		logger.Int("cancelled", agg.Cancelled),
		logger.Int("total_pages", agg.TotalPages),
		logger.Duration("duration", agg.Duration))
	return agg, nil
}
