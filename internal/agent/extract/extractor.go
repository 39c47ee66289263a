package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/feichai0017/docfiler/internal/models"
)

// Request describes one document handed to an extraction engine. Data holds
// the blob bytes; StorageKey identifies the stored object for engines that
// read from blob storage directly (async PDF analysis).
type Request struct {
	StorageKey string
	FileName   string
	MimeType   string
	Data       []byte
	PageLimit  int

	EnableIDDetection     bool
	EnableExpenseAnalysis bool
}

// Extractor turns a document blob into normalized extraction output.
// Implementations must return *ExtractionError so callers can distinguish
// retryable capability failures from permanent ones.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*models.ExtractionResult, error)
	CanProcess(mimeType string) bool
}

// ExtractionError wraps an engine failure with a retryability verdict.
type ExtractionError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s failed: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is an extraction failure worth retrying.
func IsRetryable(err error) bool {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return false
}
