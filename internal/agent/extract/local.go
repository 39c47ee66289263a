package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// LocalExtractor runs documents through a local tesseract engine. It is the
// fallback when no cloud extraction capability is configured. Only images
// are supported; PDFs need the cloud path.
type LocalExtractor struct {
	language string
	logger   logger.Logger
}

func NewLocalExtractor(language string, log logger.Logger) *LocalExtractor {
	if language == "" {
		language = "eng"
	}
	return &LocalExtractor{
		language: language,
		logger:   log,
	}
}

func (e *LocalExtractor) CanProcess(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg", "image/png", "image/tiff":
		return true
	}
	return false
}

// Extract OCRs the image bytes. A fresh client per call: the tesseract
// handle is not safe for concurrent use.
func (e *LocalExtractor) Extract(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	if !e.CanProcess(req.MimeType) {
		return nil, &ExtractionError{
			Op:        "local_ocr",
			Retryable: false,
			Err:       fmt.Errorf("unsupported mime type %s", req.MimeType),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Op: "local_ocr", Retryable: true, Err: err}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return nil, &ExtractionError{Op: "local_ocr", Retryable: false, Err: fmt.Errorf("failed to set language: %w", err)}
	}
	if err := client.SetImageFromBytes(req.Data); err != nil {
		return nil, &ExtractionError{Op: "local_ocr", Retryable: false, Err: fmt.Errorf("failed to load image: %w", err)}
	}

	text, err := client.Text()
	if err != nil {
		return nil, &ExtractionError{Op: "local_ocr", Retryable: false, Err: fmt.Errorf("failed to recognize text: %w", err)}
	}

	confidence := e.wordConfidence(client)
	e.logger.Debug("local ocr complete",
		logger.String("file_name", req.FileName),
		logger.Float64("confidence", confidence))

	return &models.ExtractionResult{
		Text:       text,
		Confidence: confidence,
		PageCount:  1,
	}, nil
}

// wordConfidence averages per-word confidences; 0 when unavailable.
func (e *LocalExtractor) wordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence / 100
	}
	return sum / float64(len(boxes))
}
