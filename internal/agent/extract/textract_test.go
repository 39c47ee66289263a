package extract

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
)

func TestPollTimeoutScalesWithPageCount(t *testing.T) {
	tests := []struct {
		name  string
		pages int
		want  time.Duration
	}{
		{"zero pages floors at one", 0, 75 * time.Second},
		{"single page", 1, 75 * time.Second},
		{"ten pages", 10, time.Minute + 150*time.Second},
		{"huge scan is capped", 500, 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pollTimeoutFor(tt.pages))
		})
	}
}

func TestClassifyTextractErrorRetryability(t *testing.T) {
	throttled := fmt.Errorf("operation error Textract: %w", &types.ThrottlingException{})
	assert.True(t, classifyTextractError("detect_text", throttled).Retryable)

	internal := fmt.Errorf("operation error Textract: %w", &types.InternalServerError{})
	assert.True(t, classifyTextractError("detect_text", internal).Retryable)

	bad := errors.New("unsupported document")
	assert.False(t, classifyTextractError("detect_text", bad).Retryable)
}

func TestFilenameHintRouting(t *testing.T) {
	assert.True(t, hasExpenseHint("Grocery_Receipt_2024.jpg"))
	assert.True(t, hasExpenseHint("INVOICE-001.png"))
	assert.False(t, hasExpenseHint("w2.pdf"))

	assert.True(t, hasIdentityHint("drivers_license.jpg"))
	assert.True(t, hasIdentityHint("Passport-scan.png"))
	assert.False(t, hasIdentityHint("receipt.jpg"))
}
