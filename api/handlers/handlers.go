package handlers

import (
	"github.com/feichai0017/docfiler/internal/service/ocr"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
)

type Handlers struct {
	OCR *OCRHandler
}

func NewHandlers(
	ocrService ocr.Processor,
	q queue.Queue,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		OCR: NewOCRHandler(ocrService, q, logger),
	}
}
