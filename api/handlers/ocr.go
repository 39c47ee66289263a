package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/ocr"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
)

type OCRHandler struct {
	service ocr.Processor
	queue   queue.Queue
	logger  logger.Logger
}

// UploadResponse describes an accepted upload.
type UploadResponse struct {
	DocumentID string `json:"documentId"`
	TaskID     string `json:"taskId"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	FileType   string `json:"fileType"`
	CreatedAt  string `json:"createdAt"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewOCRHandler(service ocr.Processor, q queue.Queue, logger logger.Logger) *OCRHandler {
	return &OCRHandler{
		service: service,
		queue:   q,
		logger:  logger,
	}
}

// Upload stores a document and queues it for processing.
func (h *OCRHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	vault := models.VaultContext(c.PostForm("vault"))
	if vault == "" {
		vault = models.VaultPersonal
	}
	vaultID := c.PostForm("vaultId")
	if vaultID == "" {
		h.handleError(c, http.StatusBadRequest, "vaultId is required", nil)
		return
	}

	task, err := h.service.Upload(c.Request.Context(), file, header, vault, vaultID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to accept upload", err)
		return
	}

	c.JSON(http.StatusAccepted, UploadResponse{
		DocumentID: task.Request.DocumentID,
		TaskID:     task.ID,
		FileName:   header.Filename,
		FileSize:   header.Size,
		FileType:   filepath.Ext(header.Filename),
		CreatedAt:  task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ProcessBatch runs a batch of already-stored documents through the
// pipeline and returns the per-document outcomes.
func (h *OCRHandler) ProcessBatch(c *gin.Context) {
	var req models.BatchOCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid batch request", err)
		return
	}
	if len(req.Documents) == 0 {
		h.handleError(c, http.StatusBadRequest, "No documents provided", nil)
		return
	}

	result, err := h.service.ProcessBatch(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to process batch", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Preview classifies and extracts without filing the document anywhere.
func (h *OCRHandler) Preview(c *gin.Context) {
	var req models.OCRProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid preview request", err)
		return
	}

	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to preview document", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Override applies a manual filing decision for a document.
func (h *OCRHandler) Override(c *gin.Context) {
	var req models.ManualOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid override request", err)
		return
	}
	if req.DocumentID == "" {
		h.handleError(c, http.StatusBadRequest, "documentId is required", nil)
		return
	}

	state, err := h.service.Override(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to apply override", err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Retry resubmits a failed document.
func (h *OCRHandler) Retry(c *gin.Context) {
	var req models.OCRProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid retry request", err)
		return
	}

	result, err := h.service.Retry(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, http.StatusConflict, "Failed to retry document", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStatus returns the document's pipeline record.
func (h *OCRHandler) GetStatus(c *gin.Context) {
	documentID := c.Param("documentId")
	if documentID == "" {
		h.handleError(c, http.StatusBadRequest, "Document ID is required", nil)
		return
	}

	state, err := h.service.Status(c.Request.Context(), documentID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// GetTaskStatus returns the queue-side view of a task.
func (h *OCRHandler) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	status, err := h.queue.GetTaskStatus(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Failed to get task status", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// CancelTask removes a queued task before a worker picks it up.
func (h *OCRHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		h.handleError(c, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.queue.CancelTask(c.Request.Context(), taskID); err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

// handleError logs and writes the uniform error body.
func (h *OCRHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
