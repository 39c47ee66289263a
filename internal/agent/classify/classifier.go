package classify

import (
	"sort"
	"strings"
	"time"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

const (
	labelBoost          = 0.2
	labelBoostThreshold = 0.7
	defaultAlternates   = 3
)

// FolderHints lets the reconciler prefer candidates whose target folder
// already exists when scores tie.
type FolderHints interface {
	HasPath(segments []string) bool
}

// noHints is used when the caller has no folder tree available.
type noHints struct{}

func (noHints) HasPath([]string) bool { return false }

// Reconciler merges pattern scores, filename hints and vision labels into
// a single classification decision. Classification never fails: the worst
// outcome is a needs-review verdict.
type Reconciler struct {
	threshold     float64
	maxAlternates int
	logger        logger.Logger
}

func NewReconciler(threshold float64, log logger.Logger) *Reconciler {
	return &Reconciler{
		threshold:     threshold,
		maxAlternates: defaultAlternates,
		logger:        log,
	}
}

type scoredMatch struct {
	subtype         models.DocumentSubtype
	category        models.DocumentCategory
	matchedPatterns []string
	matchCount      int
	patternCount    int
	weight          float64
}

func (m scoredMatch) score() float64 {
	return float64(m.matchCount) * m.weight
}

func (m scoredMatch) confidence() float64 {
	if m.patternCount == 0 {
		// Filename-only candidate.
		if m.weight > 1 {
			return 1
		}
		return m.weight
	}
	ratio := float64(m.matchCount) / float64(m.patternCount)
	if ratio > 1 {
		ratio = 1
	}
	c := ratio * m.weight
	if c > 1 {
		c = 1
	}
	return c
}

// Classify decides category and subtype for one extracted document.
func (r *Reconciler) Classify(extraction *models.ExtractionResult, fileName string, vault models.VaultContext, hints FolderHints) models.ClassificationResult {
	if hints == nil {
		hints = noHints{}
	}
	year := time.Now().Format("2006")

	if extraction == nil || (strings.TrimSpace(extraction.Text) == "" && len(extraction.Fields) == 0) {
		r.logger.Warn("no extractable content, routing to review",
			logger.String("file_name", fileName))
		return models.ClassificationResult{
			Category:            models.CategoryNeedsReview,
			Subtype:             models.SubtypeUnknown,
			Confidence:          0,
			NeedsReview:         true,
			SuggestedFolderPath: []string{models.NeedsReviewFolder},
		}
	}

	text := extraction.Text
	matches := r.matchPatterns(text)
	matches = r.applyFileNameHint(matches, fileName)

	if len(matches) == 0 {
		return models.ClassificationResult{
			Category:            models.CategoryOther,
			Subtype:             models.SubtypeUnknown,
			Confidence:          0.3,
			NeedsReview:         0.3 < r.threshold,
			SuggestedFolderPath: models.FolderPathFor(vault, models.CategoryOther, models.SubtypeUnknown, year),
		}
	}

	r.sortMatches(matches, vault, year, hints)

	best := matches[0]
	confidence := best.confidence()

	// Vision labels confirm the winning category, they never pick one.
	if boosted, cat := r.analyzeLabels(extraction.Labels); boosted && cat == best.category {
		confidence += labelBoost
		if confidence > 1 {
			confidence = 1
		}
	}

	result := models.ClassificationResult{
		Category:            best.category,
		Subtype:             best.subtype,
		Confidence:          confidence,
		MatchedPatterns:     best.matchedPatterns,
		SuggestedFolderPath: models.FolderPathFor(vault, best.category, best.subtype, year),
	}

	if confidence < r.threshold {
		result.NeedsReview = true
		for _, m := range matches[1:] {
			if len(result.Alternates) >= r.maxAlternates {
				break
			}
			result.Alternates = append(result.Alternates, models.Candidate{
				Category:   m.category,
				Subtype:    m.subtype,
				Confidence: m.confidence(),
				FolderPath: models.FolderPathFor(vault, m.category, m.subtype, year),
			})
		}
	}

	r.logger.Debug("classification complete",
		logger.String("file_name", fileName),
		logger.String("category", string(result.Category)),
		logger.String("subtype", string(result.Subtype)),
		logger.Float64("confidence", confidence),
		logger.Bool("needs_review", result.NeedsReview))
	return result
}

func (r *Reconciler) matchPatterns(text string) []scoredMatch {
	var matches []scoredMatch
	for _, set := range classificationPatterns {
		var matched []string
		for _, p := range set.patterns {
			if p.MatchString(text) {
				matched = append(matched, p.String())
			}
		}
		if len(matched) == 0 {
			continue
		}
		category, ok := models.CategoryOf(set.subtype)
		if !ok {
			continue
		}
		matches = append(matches, scoredMatch{
			subtype:         set.subtype,
			category:        category,
			matchedPatterns: matched,
			matchCount:      len(matched),
			patternCount:    len(set.patterns),
			weight:          set.weight,
		})
	}
	return matches
}

// applyFileNameHint adds a filename-derived candidate when text patterns
// did not already produce one for that subtype. Identity documents get a
// strong boost: users tend to name them accurately.
func (r *Reconciler) applyFileNameHint(matches []scoredMatch, fileName string) []scoredMatch {
	if fileName == "" {
		return matches
	}
	lower := strings.ToLower(fileName)
	for _, hint := range fileNameHints {
		if !strings.Contains(lower, hint.marker) {
			continue
		}
		for _, m := range matches {
			if m.subtype == hint.subtype {
				return matches
			}
		}
		category, ok := models.CategoryOf(hint.subtype)
		if !ok {
			return matches
		}
		weight, count := 0.5, 1
		if category == models.CategoryIdentity {
			weight, count = 1.5, 3
		}
		return append(matches, scoredMatch{
			subtype:         hint.subtype,
			category:        category,
			matchedPatterns: []string{"filename: " + fileName},
			matchCount:      count,
			weight:          weight,
		})
	}
	return matches
}

// sortMatches orders candidates by score, breaking ties in favor of
// specific subtypes, then of candidates whose folder already exists.
func (r *Reconciler) sortMatches(matches []scoredMatch, vault models.VaultContext, year string, hints FolderHints) {
	sort.SliceStable(matches, func(i, j int) bool {
		si, sj := matches[i].score(), matches[j].score()
		if si != sj {
			return si > sj
		}
		speci, specj := matches[i].subtype.IsSpecific(), matches[j].subtype.IsSpecific()
		if speci != specj {
			return speci
		}
		pathi := hints.HasPath(models.FolderPathFor(vault, matches[i].category, matches[i].subtype, year))
		pathj := hints.HasPath(models.FolderPathFor(vault, matches[j].category, matches[j].subtype, year))
		if pathi != pathj {
			return pathi
		}
		return false
	})
}

// analyzeLabels scores vision labels per category and reports whether the
// strongest category clears the boost threshold.
func (r *Reconciler) analyzeLabels(labels []models.VisionLabel) (bool, models.DocumentCategory) {
	if len(labels) == 0 {
		return false, ""
	}

	scores := map[models.DocumentCategory]float64{}
	for _, label := range labels {
		name := strings.ToLower(label.Name)
		conf := label.Confidence
		if conf > 1 {
			conf /= 100
		}
		if strings.Contains(name, "id") || strings.Contains(name, "license") || strings.Contains(name, "passport") {
			scores[models.CategoryIdentity] += conf
		}
		if strings.Contains(name, "receipt") || strings.Contains(name, "bill") {
			scores[models.CategoryExpense] += conf
		}
		if strings.Contains(name, "invoice") {
			scores[models.CategoryInvoice] += conf
		}
		if strings.Contains(name, "medical") || strings.Contains(name, "prescription") {
			scores[models.CategoryMedical] += conf
		}
		if strings.Contains(name, "bank") || strings.Contains(name, "financial") || strings.Contains(name, "check") {
			scores[models.CategoryFinancial] += conf
		}
		if strings.Contains(name, "contract") || strings.Contains(name, "legal") {
			scores[models.CategoryLegal] += conf
		}
	}

	var best models.DocumentCategory
	var bestScore float64
	for cat, score := range scores {
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}
	if bestScore > 1 {
		bestScore = 1
	}
	return bestScore > labelBoostThreshold, best
}
