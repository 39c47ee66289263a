package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCORSAllowedOriginsDefaultsToAny(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	assert.Equal(t, []string{"*"}, GetCORSAllowedOrigins())
}

func TestGetCORSAllowedOriginsSplitsAndTrims(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com ,")

	assert.Equal(t,
		[]string{"https://app.example.com", "https://staging.example.com"},
		GetCORSAllowedOrigins())
}
