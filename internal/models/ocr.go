package models

import (
	"time"
)

// VaultContext distinguishes personal vaults from organization vaults.
// The folder root and path templates differ between the two.
type VaultContext string

const (
	VaultPersonal     VaultContext = "personal"
	VaultOrganization VaultContext = "organization"
)

// FieldSource records where a normalized metadata value came from.
type FieldSource string

const (
	SourceExtraction FieldSource = "extraction" // structured field from the extraction engine
	SourceHeuristic  FieldSource = "heuristic"  // regex/text heuristic over raw text
)

// StructuredField is a key/value pair the extraction engine returned with
// its own confidence, e.g. Textract expense or identity fields.
type StructuredField struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// VisionLabel is a visual label detected on the document image.
type VisionLabel struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ExtractionResult is the normalized output of any extraction engine.
type ExtractionResult struct {
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Fields     []StructuredField `json:"fields,omitempty"`
	Labels     []VisionLabel     `json:"labels,omitempty"`
	PageCount  int               `json:"pageCount"`
	Truncated  bool              `json:"truncated"`
}

// Candidate is one ranked classification alternative.
type Candidate struct {
	Category   DocumentCategory `json:"category"`
	Subtype    DocumentSubtype  `json:"subtype"`
	Confidence float64          `json:"confidence"`
	FolderPath []string         `json:"folderPath,omitempty"`
}

// ClassificationResult is the reconciler's decision for one document.
type ClassificationResult struct {
	Category            DocumentCategory `json:"category"`
	Subtype             DocumentSubtype  `json:"subtype"`
	Confidence          float64          `json:"confidence"`
	MatchedPatterns     []string         `json:"matchedPatterns,omitempty"`
	SuggestedFolderPath []string         `json:"suggestedFolderPath"`
	NeedsReview         bool             `json:"needsReview"`
	Alternates          []Candidate      `json:"alternates,omitempty"`
}

// MetadataField is a normalized value plus its provenance.
type MetadataField struct {
	Value      string      `json:"value"`
	Confidence float64     `json:"confidence"`
	Source     FieldSource `json:"source"`
}

// ExtractedMetadata holds the normalized metadata for a document. Fields
// are pointers: absent means the normalizer found nothing usable, which is
// never an error. Dates are canonical YYYY-MM-DD strings.
type ExtractedMetadata struct {
	DocumentDate   *MetadataField `json:"documentDate,omitempty"`
	DueDate        *MetadataField `json:"dueDate,omitempty"`
	ExpirationDate *MetadataField `json:"expirationDate,omitempty"`
	Amount         *MetadataField `json:"amount,omitempty"`
	Currency       *MetadataField `json:"currency,omitempty"`
	Vendor         *MetadataField `json:"vendor,omitempty"`
	FullName       *MetadataField `json:"fullName,omitempty"`
	DocumentNumber *MetadataField `json:"documentNumber,omitempty"`
	AccountNumber  *MetadataField `json:"accountNumber,omitempty"`
	InvoiceNumber  *MetadataField `json:"invoiceNumber,omitempty"`
	ClientName     *MetadataField `json:"clientName,omitempty"`
	RawText        string         `json:"-"`
}

// FolderNode is one folder in a vault's tree snapshot.
type FolderNode struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PathSegments []string `json:"pathSegments"`
	ParentID     string   `json:"parentId,omitempty"`
}

// TargetFolder is the resolver's answer: where the document goes and
// whether the leaf had to be created.
type TargetFolder struct {
	FolderID     string   `json:"folderId"`
	Name         string   `json:"name"`
	PathSegments []string `json:"pathSegments"`
	Created      bool     `json:"created"`
}

// OCRStatus is a stage in the document pipeline.
type OCRStatus string

const (
	StatusPending         OCRStatus = "pending"
	StatusExtracting      OCRStatus = "extracting"
	StatusClassifying     OCRStatus = "classifying"
	StatusCreatingFolders OCRStatus = "creating_folders"
	StatusSorting         OCRStatus = "sorting"
	StatusCompleted       OCRStatus = "completed"
	StatusFailed          OCRStatus = "failed"
)

// IsTerminal reports whether no further automatic transition is allowed.
func (s OCRStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PipelineState is the persisted per-document pipeline record. Generation
// increments on each resubmission of the same document.
type PipelineState struct {
	DocumentID string    `json:"documentId"`
	Generation int       `json:"generation"`
	Status     OCRStatus `json:"status"`
	Progress   int       `json:"progress"`
	LastError  string    `json:"lastError,omitempty"`
	Retryable  bool      `json:"retryable"`
	RetryCount int       `json:"retryCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// OCRResult is the full outcome of processing one document.
type OCRResult struct {
	DocumentID     string                `json:"documentId"`
	FileName       string                `json:"fileName"`
	Status         OCRStatus             `json:"status"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	Metadata       *ExtractedMetadata    `json:"metadata,omitempty"`
	Target         *TargetFolder         `json:"target,omitempty"`
	Extraction     *ExtractionResult     `json:"extraction,omitempty"`
	Error          string                `json:"error,omitempty"`
	Retryable      bool                  `json:"retryable,omitempty"`
	ProcessedAt    time.Time             `json:"processedAt"`
	Duration       time.Duration         `json:"duration"`
}

// OCRProcessRequest describes one document to run through the pipeline.
type OCRProcessRequest struct {
	DocumentID string       `json:"documentId"`
	StorageKey string       `json:"storageKey"`
	FileName   string       `json:"fileName"`
	MimeType   string       `json:"mimeType"`
	Vault      VaultContext `json:"vault"`
	VaultID    string       `json:"vaultId"`
	AutoSort   *bool        `json:"autoSort,omitempty"` // nil means use the configured default
}

// BatchOCRRequest is a bulk submission.
type BatchOCRRequest struct {
	BatchID   string              `json:"batchId"`
	Documents []OCRProcessRequest `json:"documents"`
}

// BatchOCRResult aggregates per-document outcomes for one batch.
type BatchOCRResult struct {
	BatchID    string        `json:"batchId"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Cancelled  int           `json:"cancelled"`
	TotalPages int           `json:"totalPages"`
	Results    []OCRResult   `json:"results"`
	Duration   time.Duration `json:"duration"`
}

// OCRProgressUpdate is published while a document moves through stages.
type OCRProgressUpdate struct {
	DocumentID string    `json:"documentId"`
	Status     OCRStatus `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ManualOverrideRequest reclassifies a document by hand. The override wins
// over any in-flight automatic processing.
type ManualOverrideRequest struct {
	DocumentID string           `json:"documentId"`
	Category   DocumentCategory `json:"category"`
	Subtype    DocumentSubtype  `json:"subtype"`
	FolderID   string           `json:"folderId,omitempty"`
	Vault      VaultContext     `json:"vault"`
	VaultID    string           `json:"vaultId"`
}

// OCRConfig carries the engine's tunables.
type OCRConfig struct {
	ConfidenceThreshold   float64 `json:"confidenceThreshold" yaml:"confidence_threshold"`
	AutoSortEnabled       bool    `json:"autoSortEnabled" yaml:"auto_sort_enabled"`
	MaxPagesPerDocument   int     `json:"maxPagesPerDocument" yaml:"max_pages_per_document"`
	EnableIDDetection     bool    `json:"enableIdDetection" yaml:"enable_id_detection"`
	EnableExpenseAnalysis bool    `json:"enableExpenseAnalysis" yaml:"enable_expense_analysis"`
	MaxRetries            int     `json:"maxRetries" yaml:"max_retries"`
	BatchConcurrency      int     `json:"batchConcurrency" yaml:"batch_concurrency"`
}
