package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"

	appconfig "github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

const (
	// Sync Textract calls reject documents over 10MB; downscale above this.
	maxSyncBytes = 5 * 1024 * 1024
	maxImageEdge = 4000

	pollInterval    = 2 * time.Second
	pollBaseTimeout = time.Minute
	pollPerPage     = 15 * time.Second
	pollMaxTimeout  = 15 * time.Minute

	// Sync calls analyze a single page; a stuck request fails fast.
	syncCallTimeout = 30 * time.Second
)

// pollTimeoutFor scales the async job deadline with the document's size.
// A single-page PDF gives up quickly; a large scan gets room to finish.
func pollTimeoutFor(pageCount int) time.Duration {
	if pageCount < 1 {
		pageCount = 1
	}
	timeout := pollBaseTimeout + time.Duration(pageCount)*pollPerPage
	if timeout > pollMaxTimeout {
		return pollMaxTimeout
	}
	return timeout
}

// TextractExtractor runs documents through AWS Textract. Images go through
// the sync APIs; PDFs go through the async text detection job against the
// stored S3 object. Expense and identity documents are routed to the
// specialized analyzers based on filename hints.
type TextractExtractor struct {
	client *textract.Client
	bucket string
	logger logger.Logger
}

func NewTextractExtractor(ctx context.Context, cfg *appconfig.TextractConfig, bucket string, log logger.Logger) (*TextractExtractor, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKey,
		cfg.SecretKey,
		"",
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &TextractExtractor{
		client: textract.NewFromConfig(awsCfg),
		bucket: bucket,
		logger: log,
	}, nil
}

func (e *TextractExtractor) CanProcess(mimeType string) bool {
	supportedTypes := map[string]bool{
		"image/jpeg":      true,
		"image/jpg":       true,
		"image/png":       true,
		"image/tiff":      true,
		"application/pdf": true,
	}
	return supportedTypes[strings.ToLower(mimeType)]
}

// Extract routes the document to the most capable analysis path.
func (e *TextractExtractor) Extract(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	switch {
	case strings.EqualFold(req.MimeType, "application/pdf"):
		return e.extractPDF(ctx, req)
	case req.EnableExpenseAnalysis && hasExpenseHint(req.FileName):
		return e.analyzeExpense(ctx, req)
	case req.EnableIDDetection && hasIdentityHint(req.FileName):
		return e.analyzeID(ctx, req)
	default:
		return e.detectText(ctx, req)
	}
}

// hasExpenseHint checks the filename for receipt/invoice markers.
func hasExpenseHint(fileName string) bool {
	name := strings.ToLower(fileName)
	for _, hint := range []string{"receipt", "invoice", "expense", "bill"} {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// hasIdentityHint checks the filename for identity document markers.
func hasIdentityHint(fileName string) bool {
	name := strings.ToLower(fileName)
	for _, hint := range []string{"license", "licence", "passport", "id_card", "id-card", "idcard", "identity"} {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func (e *TextractExtractor) detectText(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	data, err := e.prepareImage(req)
	if err != nil {
		return nil, &ExtractionError{Op: "detect_text", Retryable: false, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, syncCallTimeout)
	defer cancel()

	out, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return nil, classifyTextractError("detect_text", err)
	}

	text, confidence := linesFromBlocks(out.Blocks, 0)
	return &models.ExtractionResult{
		Text:       text,
		Confidence: confidence,
		PageCount:  1,
	}, nil
}

func (e *TextractExtractor) analyzeExpense(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	data, err := e.prepareImage(req)
	if err != nil {
		return nil, &ExtractionError{Op: "analyze_expense", Retryable: false, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, syncCallTimeout)
	defer cancel()

	out, err := e.client.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return nil, classifyTextractError("analyze_expense", err)
	}

	result := &models.ExtractionResult{PageCount: 1}
	var textParts []string
	var confSum float64
	var confCount int

	for _, doc := range out.ExpenseDocuments {
		for _, field := range doc.SummaryFields {
			if field.Type == nil || field.Type.Text == nil || field.ValueDetection == nil || field.ValueDetection.Text == nil {
				continue
			}
			conf := 0.0
			if field.ValueDetection.Confidence != nil {
				conf = float64(*field.ValueDetection.Confidence) / 100
			}
			result.Fields = append(result.Fields, models.StructuredField{
				Key:        *field.Type.Text,
				Value:      *field.ValueDetection.Text,
				Confidence: conf,
			})
			textParts = append(textParts, fmt.Sprintf("%s: %s", *field.Type.Text, *field.ValueDetection.Text))
			confSum += conf
			confCount++
		}
		for _, group := range doc.LineItemGroups {
			for _, item := range group.LineItems {
				for _, field := range item.LineItemExpenseFields {
					if field.ValueDetection != nil && field.ValueDetection.Text != nil {
						textParts = append(textParts, *field.ValueDetection.Text)
					}
				}
			}
		}
	}

	result.Text = strings.Join(textParts, "\n")
	if confCount > 0 {
		result.Confidence = confSum / float64(confCount)
	}
	return result, nil
}

func (e *TextractExtractor) analyzeID(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	data, err := e.prepareImage(req)
	if err != nil {
		return nil, &ExtractionError{Op: "analyze_id", Retryable: false, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, syncCallTimeout)
	defer cancel()

	out, err := e.client.AnalyzeID(ctx, &textract.AnalyzeIDInput{
		DocumentPages: []types.Document{{Bytes: data}},
	})
	if err != nil {
		return nil, classifyTextractError("analyze_id", err)
	}

	result := &models.ExtractionResult{PageCount: 1}
	var textParts []string
	var confSum float64
	var confCount int

	for _, doc := range out.IdentityDocuments {
		for _, field := range doc.IdentityDocumentFields {
			if field.Type == nil || field.Type.Text == nil || field.ValueDetection == nil || field.ValueDetection.Text == nil {
				continue
			}
			value := *field.ValueDetection.Text
			if value == "" {
				continue
			}
			conf := 0.0
			if field.ValueDetection.Confidence != nil {
				conf = float64(*field.ValueDetection.Confidence) / 100
			}
			result.Fields = append(result.Fields, models.StructuredField{
				Key:        *field.Type.Text,
				Value:      value,
				Confidence: conf,
			})
			textParts = append(textParts, fmt.Sprintf("%s: %s", *field.Type.Text, value))
			confSum += conf
			confCount++
		}
	}

	result.Text = strings.Join(textParts, "\n")
	if confCount > 0 {
		result.Confidence = confSum / float64(confCount)
	}
	return result, nil
}

// extractPDF counts pages locally, then runs the async text detection job
// against the stored object and collects lines up to the page limit.
func (e *TextractExtractor) extractPDF(ctx context.Context, req Request) (*models.ExtractionResult, error) {
	pageCount, err := countPDFPages(req.Data)
	if err != nil {
		return nil, &ExtractionError{Op: "pdf_page_count", Retryable: false, Err: err}
	}

	truncated := false
	limit := req.PageLimit
	if limit > 0 && pageCount > limit {
		truncated = true
		e.logger.Warn("document exceeds page limit, truncating",
			logger.String("file_name", req.FileName),
			logger.Int("pages", pageCount),
			logger.Int("limit", limit))
	}

	start, err := e.client.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: &e.bucket,
				Name:   &req.StorageKey,
			},
		},
	})
	if err != nil {
		return nil, classifyTextractError("start_text_detection", err)
	}

	blocks, err := e.pollTextDetection(ctx, *start.JobId, pollTimeoutFor(pageCount))
	if err != nil {
		return nil, err
	}

	text, confidence := linesFromBlocks(blocks, limit)
	return &models.ExtractionResult{
		Text:       text,
		Confidence: confidence,
		PageCount:  pageCount,
		Truncated:  truncated,
	}, nil
}

func (e *TextractExtractor) pollTextDetection(ctx context.Context, jobID string, timeout time.Duration) ([]types.Block, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var blocks []types.Block
	var nextToken *string

	for {
		select {
		case <-ctx.Done():
			return nil, &ExtractionError{Op: "poll_text_detection", Retryable: true, Err: ctx.Err()}
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return nil, &ExtractionError{Op: "poll_text_detection", Retryable: true, Err: errors.New("textract job timed out")}
		}

		out, err := e.client.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId:     &jobID,
			NextToken: nextToken,
		})
		if err != nil {
			return nil, classifyTextractError("get_text_detection", err)
		}

		switch out.JobStatus {
		case types.JobStatusInProgress:
			continue
		case types.JobStatusFailed, types.JobStatusPartialSuccess:
			msg := "textract job failed"
			if out.StatusMessage != nil {
				msg = *out.StatusMessage
			}
			return nil, &ExtractionError{Op: "get_text_detection", Retryable: false, Err: errors.New(msg)}
		}

		blocks = append(blocks, out.Blocks...)
		if out.NextToken == nil {
			return blocks, nil
		}
		nextToken = out.NextToken
	}
}

// prepareImage downscales oversized images so the sync APIs accept them.
// Non-image payloads pass through untouched.
func (e *TextractExtractor) prepareImage(req Request) ([]byte, error) {
	if !strings.HasPrefix(strings.ToLower(req.MimeType), "image/") {
		return req.Data, nil
	}
	if len(req.Data) <= maxSyncBytes {
		return req.Data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fit(img, maxImageEdge, maxImageEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode downscaled image: %w", err)
	}

	e.logger.Debug("downscaled oversized image",
		logger.String("file_name", req.FileName),
		logger.Int("original_bytes", len(req.Data)),
		logger.Int("downscaled_bytes", buf.Len()))
	return buf.Bytes(), nil
}

// linesFromBlocks joins LINE blocks into text and averages their
// confidences. pageLimit 0 means no limit.
func linesFromBlocks(blocks []types.Block, pageLimit int) (string, float64) {
	var lines []string
	var confSum float64
	var confCount int

	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if pageLimit > 0 && block.Page != nil && int(*block.Page) > pageLimit {
			continue
		}
		lines = append(lines, *block.Text)
		if block.Confidence != nil {
			confSum += float64(*block.Confidence) / 100
			confCount++
		}
	}

	confidence := 0.0
	if confCount > 0 {
		confidence = confSum / float64(confCount)
	}
	return strings.Join(lines, "\n"), confidence
}

func countPDFPages(data []byte) (int, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	return pdfReader.NumPage(), nil
}

// classifyTextractError maps service failures to a retryability verdict.
// Throttling and internal errors are transient; bad documents are not.
func classifyTextractError(op string, err error) *ExtractionError {
	var (
		throttle    *types.ThrottlingException
		provisioned *types.ProvisionedThroughputExceededException
		internal    *types.InternalServerError
		limit       *types.LimitExceededException
	)
	retryable := errors.As(err, &throttle) ||
		errors.As(err, &provisioned) ||
		errors.As(err, &internal) ||
		errors.As(err, &limit)
	return &ExtractionError{Op: op, Retryable: retryable, Err: err}
}
