package config

import "strings"

// GetCORSAllowedOrigins returns the origins the API accepts, from the
// comma-separated CORS_ALLOWED_ORIGINS variable. Unset means any origin,
// which suits local development; deployments pin their frontends here.
func GetCORSAllowedOrigins() []string {
	loadDotEnv()
	raw := getEnv("CORS_ALLOWED_ORIGINS", "*")

	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
