package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/feichai0017/docfiler/internal/models"
)

var (
	engineOnce   sync.Once
	engineConfig *models.OCRConfig
)

// DefaultEngineConfig returns the engine tunables with their defaults.
func DefaultEngineConfig() models.OCRConfig {
	return models.OCRConfig{
		ConfidenceThreshold:   0.7,
		AutoSortEnabled:       true,
		MaxPagesPerDocument:   10,
		EnableIDDetection:     true,
		EnableExpenseAnalysis: true,
		MaxRetries:            2,
		BatchConcurrency:      4,
	}
}

// GetEngineConfig resolves the engine config once: defaults, then an
// optional yaml overlay (ENGINE_CONFIG_FILE), then environment variables.
func GetEngineConfig() *models.OCRConfig {
	engineOnce.Do(func() {
		loadDotEnv()
		cfg := DefaultEngineConfig()

		if path := os.Getenv("ENGINE_CONFIG_FILE"); path != "" {
			if err := loadEngineFile(path, &cfg); err != nil {
				panic(fmt.Sprintf("invalid engine config file %s: %v", path, err))
			}
		}

		cfg.ConfidenceThreshold = getEnvFloat("OCR_CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)
		cfg.AutoSortEnabled = getEnvBool("OCR_AUTO_SORT_ENABLED", cfg.AutoSortEnabled)
		cfg.MaxPagesPerDocument = getEnvInt("OCR_MAX_PAGES", cfg.MaxPagesPerDocument)
		cfg.EnableIDDetection = getEnvBool("OCR_ENABLE_ID_DETECTION", cfg.EnableIDDetection)
		cfg.EnableExpenseAnalysis = getEnvBool("OCR_ENABLE_EXPENSE_ANALYSIS", cfg.EnableExpenseAnalysis)
		cfg.MaxRetries = getEnvInt("OCR_MAX_RETRIES", cfg.MaxRetries)
		cfg.BatchConcurrency = getEnvInt("OCR_BATCH_CONCURRENCY", cfg.BatchConcurrency)

		engineConfig = &cfg
	})
	return engineConfig
}

// GetExtractionEngine selects the extraction backend: "textract" (default)
// or "local" for the on-host tesseract engine.
func GetExtractionEngine() string {
	loadDotEnv()
	return getEnv("OCR_EXTRACTION_ENGINE", "textract")
}

func loadEngineFile(path string, cfg *models.OCRConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}
