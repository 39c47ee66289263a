package normalize

import (
	"regexp"
	"strings"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

const rawTextLimit = 2000

// fieldKey names one normalizable metadata field.
type fieldKey string

const (
	fieldDocumentDate   fieldKey = "documentDate"
	fieldDueDate        fieldKey = "dueDate"
	fieldExpirationDate fieldKey = "expirationDate"
	fieldAmount         fieldKey = "amount"
	fieldCurrency       fieldKey = "currency"
	fieldVendor         fieldKey = "vendor"
	fieldFullName       fieldKey = "fullName"
	fieldDocumentNumber fieldKey = "documentNumber"
	fieldAccountNumber  fieldKey = "accountNumber"
	fieldInvoiceNumber  fieldKey = "invoiceNumber"
	fieldClientName     fieldKey = "clientName"
)

// fieldProfiles keys field applicability by category. A field absent from
// the profile is never populated for documents of that category, no matter
// what the text contains.
var fieldProfiles = map[models.DocumentCategory][]fieldKey{
	models.CategoryIdentity:       {fieldDocumentDate, fieldExpirationDate, fieldFullName, fieldDocumentNumber},
	models.CategoryFinancial:      {fieldDocumentDate, fieldAmount, fieldCurrency, fieldVendor, fieldAccountNumber, fieldFullName},
	models.CategoryTax:            {fieldDocumentDate, fieldDueDate, fieldAmount, fieldCurrency, fieldFullName, fieldDocumentNumber},
	models.CategoryIncome:         {fieldDocumentDate, fieldAmount, fieldCurrency, fieldVendor, fieldFullName},
	models.CategoryExpense:        {fieldDocumentDate, fieldAmount, fieldCurrency, fieldVendor, fieldInvoiceNumber},
	models.CategoryInvoice:        {fieldDocumentDate, fieldDueDate, fieldAmount, fieldCurrency, fieldVendor, fieldInvoiceNumber, fieldClientName},
	models.CategoryMedical:        {fieldDocumentDate, fieldFullName, fieldVendor, fieldAccountNumber},
	models.CategoryInsurance:      {fieldDocumentDate, fieldExpirationDate, fieldAmount, fieldCurrency, fieldFullName, fieldDocumentNumber, fieldVendor},
	models.CategoryLegal:          {fieldDocumentDate, fieldFullName, fieldClientName, fieldDocumentNumber},
	models.CategoryProperty:       {fieldDocumentDate, fieldAmount, fieldCurrency, fieldFullName, fieldClientName},
	models.CategoryBusiness:       {fieldDocumentDate, fieldAmount, fieldCurrency, fieldVendor, fieldClientName, fieldDocumentNumber},
	models.CategoryEmployment:     {fieldDocumentDate, fieldAmount, fieldCurrency, fieldFullName, fieldVendor},
	models.CategoryEducation:      {fieldDocumentDate, fieldFullName, fieldVendor, fieldDocumentNumber},
	models.CategoryCertification:  {fieldDocumentDate, fieldExpirationDate, fieldFullName, fieldDocumentNumber},
	models.CategoryCorrespondence: {fieldDocumentDate, fieldFullName, fieldVendor},
	models.CategoryVehicle:        {fieldDocumentDate, fieldExpirationDate, fieldFullName, fieldDocumentNumber, fieldAmount, fieldCurrency},
	models.CategoryPersonal:       {fieldDocumentDate},
	models.CategoryTravel:         {fieldDocumentDate, fieldAmount, fieldCurrency, fieldVendor, fieldFullName, fieldDocumentNumber},
	models.CategoryTechnical:      {fieldDocumentDate, fieldVendor},
	models.CategoryNeedsReview:    {fieldDocumentDate},
	models.CategoryOther:          {fieldDocumentDate, fieldAmount, fieldCurrency, fieldVendor},
}

// subtypeProfileExtras adds fields for subtypes whose needs exceed their
// category profile, e.g. bills carry due dates where most expenses do not.
var subtypeProfileExtras = map[models.DocumentSubtype][]fieldKey{
	models.SubtypeBill:             {fieldDueDate, fieldAccountNumber},
	models.SubtypeUtilityBill:      {fieldDueDate, fieldAccountNumber},
	models.SubtypeMedicalBill:      {fieldDueDate, fieldAccountNumber},
	models.SubtypeCreditCardStmt:   {fieldDueDate},
	models.SubtypeMortgageDocument: {fieldDueDate},
	models.SubtypeLoanDocument:     {fieldDueDate},
	models.SubtypeStudentLoan:      {fieldDueDate, fieldAmount, fieldCurrency},
}

// Heuristic extraction patterns over raw text, used when the extraction
// engine produced no structured field for the slot.
var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}`),
		regexp.MustCompile(`\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2}`),
		regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s*\d{1,2},?\s*\d{4}`),
		regexp.MustCompile(`(?i)\d{1,2}\s*(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s*\d{4}`),
	}
	dueDatePattern    = regexp.MustCompile(`(?i)(?:due\s*(?:date|by|on)|payment\s*due)[:\s]*([A-Za-z0-9,./\- ]+)`)
	expirationPattern = regexp.MustCompile(`(?i)(?:exp(?:ires|iration|\.)?\s*(?:date|on)?|valid\s*(?:until|through))[:\s]*([A-Za-z0-9,./\- ]+)`)
	amountPatterns    = []*regexp.Regexp{
		regexp.MustCompile(`\$[\d,]+\.?\d{0,2}`),
		regexp.MustCompile(`(?i)(?:total|amount|sum|balance)[:\s]*\$?[\d,]+\.?\d{0,2}`),
		regexp.MustCompile(`(?i)[\d,]+\.?\d{0,2}\s*(?:USD|CAD|EUR|GBP)`),
	}
	currencyPattern = regexp.MustCompile(`(?i)\b(USD|CAD|EUR|GBP)\b`)
	namePatterns    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:name|customer|client|patient)[:\s]*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
		regexp.MustCompile(`(?:Mr\.|Mrs\.|Ms\.|Dr\.)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
	}
	vendorPattern    = regexp.MustCompile(`(?i)(?:from|vendor|merchant|store|company)[:\s]*([A-Z][A-Za-z\s&]+(?:Inc\.?|LLC|Ltd\.?|Corp\.?)?)`)
	// The capture must contain a digit so prose following the keyword is
	// never mistaken for a reference.
	referencePattern = regexp.MustCompile(`(?i)(?:invoice|receipt|order|ref|reference|confirmation)\s*(?:#|no\.?|number)?[:\s]*([A-Z\-]*\d[A-Z0-9\-]{2,})`)
	accountPattern   = regexp.MustCompile(`(?i)account\s*(?:#|no\.?|number)[:\s]*([A-Z0-9\-*]{4,})`)
	documentNumber   = regexp.MustCompile(`(?i)(?:document|license|passport|certificate|policy)\s*(?:#|no\.?|number)[:\s]*([A-Z0-9\-]{3,})`)
	clientPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:client|customer|patient|account)[:\s]*([A-Z][A-Za-z\s]+)`),
		regexp.MustCompile(`(?i)(?:bill\s*to|ship\s*to)[:\s]*\n?\s*([A-Z][A-Za-z\s]+)`),
	}
)

// Textract structured field types mapped to metadata slots.
var structuredFieldSlots = map[string]fieldKey{
	"VENDOR_NAME":          fieldVendor,
	"TOTAL":                fieldAmount,
	"AMOUNT_DUE":           fieldAmount,
	"INVOICE_RECEIPT_DATE": fieldDocumentDate,
	"INVOICE_RECEIPT_ID":   fieldInvoiceNumber,
	"DUE_DATE":             fieldDueDate,
	"PAYMENT_DUE_DATE":     fieldDueDate,
	"FULL_NAME":            fieldFullName,
	"FIRST_NAME":           fieldFullName,
	"LAST_NAME":            fieldFullName,
	"DOCUMENT_NUMBER":      fieldDocumentNumber,
	"ID_NUMBER":            fieldDocumentNumber,
	"EXPIRATION_DATE":      fieldExpirationDate,
	"ACCOUNT_NUMBER":       fieldAccountNumber,
	"RECEIVER_NAME":        fieldClientName,
}

// Normalizer derives canonical metadata from extraction output. It never
// fails: unusable values are omitted and logged, nothing more.
type Normalizer struct {
	logger logger.Logger
}

func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{logger: log}
}

// Normalize builds the metadata record for one classified document.
func (n *Normalizer) Normalize(extraction *models.ExtractionResult, classification models.ClassificationResult) *models.ExtractedMetadata {
	meta := &models.ExtractedMetadata{}
	if extraction == nil {
		return meta
	}

	allowed := allowedFields(classification.Category, classification.Subtype)
	text := extraction.Text

	// Structured engine fields first: they carry their own confidence and
	// always beat text heuristics for the same slot.
	n.applyStructuredFields(meta, extraction.Fields, allowed)
	n.applyHeuristics(meta, text, allowed)

	if len(text) > rawTextLimit {
		meta.RawText = text[:rawTextLimit]
	} else {
		meta.RawText = text
	}
	return meta
}

func allowedFields(cat models.DocumentCategory, sub models.DocumentSubtype) map[fieldKey]bool {
	allowed := make(map[fieldKey]bool)
	for _, f := range fieldProfiles[cat] {
		allowed[f] = true
	}
	for _, f := range subtypeProfileExtras[sub] {
		allowed[f] = true
	}
	return allowed
}

func (n *Normalizer) applyStructuredFields(meta *models.ExtractedMetadata, fields []models.StructuredField, allowed map[fieldKey]bool) {
	var firstName, lastName string
	var nameConf float64

	for _, f := range fields {
		slot, ok := structuredFieldSlots[strings.ToUpper(f.Key)]
		if !ok || !allowed[slot] || strings.TrimSpace(f.Value) == "" {
			continue
		}

		// Name halves are merged after the loop.
		switch strings.ToUpper(f.Key) {
		case "FIRST_NAME":
			firstName = f.Value
			nameConf = f.Confidence
			continue
		case "LAST_NAME":
			lastName = f.Value
			if f.Confidence < nameConf || nameConf == 0 {
				nameConf = f.Confidence
			}
			continue
		}

		value := strings.TrimSpace(f.Value)
		if slot == fieldDocumentDate || slot == fieldDueDate || slot == fieldExpirationDate {
			normalized, ok := NormalizeDate(value)
			if !ok {
				n.logger.Debug("dropping unparseable structured date",
					logger.String("field", f.Key),
					logger.String("value", value))
				continue
			}
			value = normalized
		}

		n.setField(meta, slot, value, f.Confidence, models.SourceExtraction)
	}

	if allowed[fieldFullName] && (firstName != "" || lastName != "") {
		full := strings.TrimSpace(firstName + " " + lastName)
		n.setField(meta, fieldFullName, full, nameConf, models.SourceExtraction)
	}
}

func (n *Normalizer) applyHeuristics(meta *models.ExtractedMetadata, text string, allowed map[fieldKey]bool) {
	if text == "" {
		return
	}

	if allowed[fieldDocumentDate] && meta.DocumentDate == nil {
		for _, p := range datePatterns {
			if m := p.FindString(text); m != "" {
				if normalized, ok := NormalizeDate(m); ok {
					n.setField(meta, fieldDocumentDate, normalized, 0.6, models.SourceHeuristic)
				} else {
					n.logger.Debug("dropping unparseable date", logger.String("value", m))
				}
				break
			}
		}
	}

	if allowed[fieldDueDate] && meta.DueDate == nil {
		if m := dueDatePattern.FindStringSubmatch(text); m != nil {
			if raw := firstDateIn(m[1]); raw != "" {
				if normalized, ok := NormalizeDate(raw); ok {
					n.setField(meta, fieldDueDate, normalized, 0.6, models.SourceHeuristic)
				}
			}
		}
	}

	if allowed[fieldExpirationDate] && meta.ExpirationDate == nil {
		if m := expirationPattern.FindStringSubmatch(text); m != nil {
			if raw := firstDateIn(m[1]); raw != "" {
				if normalized, ok := NormalizeDate(raw); ok {
					n.setField(meta, fieldExpirationDate, normalized, 0.6, models.SourceHeuristic)
				}
			}
		}
	}

	if allowed[fieldAmount] && meta.Amount == nil {
		for _, p := range amountPatterns {
			if m := p.FindString(text); m != "" {
				cleaned := strings.TrimSpace(strings.Map(keepAmountRunes, m))
				if cleaned != "" && cleaned != "$" {
					n.setField(meta, fieldAmount, cleaned, 0.6, models.SourceHeuristic)
				}
				break
			}
		}
	}

	if allowed[fieldCurrency] && meta.Currency == nil {
		if m := currencyPattern.FindString(text); m != "" {
			n.setField(meta, fieldCurrency, strings.ToUpper(m), 0.6, models.SourceHeuristic)
		} else if meta.Amount != nil && strings.HasPrefix(meta.Amount.Value, "$") {
			n.setField(meta, fieldCurrency, "USD", 0.5, models.SourceHeuristic)
		}
	}

	if allowed[fieldVendor] && meta.Vendor == nil {
		if m := vendorPattern.FindStringSubmatch(text); m != nil && m[1] != "" {
			n.setField(meta, fieldVendor, strings.TrimSpace(m[1]), 0.5, models.SourceHeuristic)
		}
	}

	if allowed[fieldFullName] && meta.FullName == nil {
		for _, p := range namePatterns {
			if m := p.FindStringSubmatch(text); m != nil && m[1] != "" {
				n.setField(meta, fieldFullName, strings.TrimSpace(m[1]), 0.5, models.SourceHeuristic)
				break
			}
		}
	}

	if allowed[fieldInvoiceNumber] && meta.InvoiceNumber == nil {
		if m := referencePattern.FindStringSubmatch(text); m != nil && m[1] != "" {
			n.setField(meta, fieldInvoiceNumber, strings.TrimSpace(m[1]), 0.5, models.SourceHeuristic)
		}
	}

	if allowed[fieldAccountNumber] && meta.AccountNumber == nil {
		if m := accountPattern.FindStringSubmatch(text); m != nil && m[1] != "" {
			n.setField(meta, fieldAccountNumber, strings.TrimSpace(m[1]), 0.5, models.SourceHeuristic)
		}
	}

	if allowed[fieldDocumentNumber] && meta.DocumentNumber == nil {
		if m := documentNumber.FindStringSubmatch(text); m != nil && m[1] != "" {
			n.setField(meta, fieldDocumentNumber, strings.TrimSpace(m[1]), 0.5, models.SourceHeuristic)
		}
	}

	if allowed[fieldClientName] && meta.ClientName == nil {
		for _, p := range clientPatterns {
			if m := p.FindStringSubmatch(text); m != nil && m[1] != "" {
				n.setField(meta, fieldClientName, strings.TrimSpace(m[1]), 0.5, models.SourceHeuristic)
				break
			}
		}
	}
}

func (n *Normalizer) setField(meta *models.ExtractedMetadata, slot fieldKey, value string, confidence float64, source models.FieldSource) {
	field := &models.MetadataField{Value: value, Confidence: confidence, Source: source}
	switch slot {
	case fieldDocumentDate:
		meta.DocumentDate = field
	case fieldDueDate:
		meta.DueDate = field
	case fieldExpirationDate:
		meta.ExpirationDate = field
	case fieldAmount:
		meta.Amount = field
	case fieldCurrency:
		meta.Currency = field
	case fieldVendor:
		meta.Vendor = field
	case fieldFullName:
		meta.FullName = field
	case fieldDocumentNumber:
		meta.DocumentNumber = field
	case fieldAccountNumber:
		meta.AccountNumber = field
	case fieldInvoiceNumber:
		meta.InvoiceNumber = field
	case fieldClientName:
		meta.ClientName = field
	}
}

func firstDateIn(s string) string {
	for _, p := range datePatterns {
		if m := p.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

func keepAmountRunes(r rune) rune {
	switch {
	case r >= '0' && r <= '9', r == '$', r == '.', r == ',':
		return r
	}
	return -1
}
