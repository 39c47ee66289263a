package config

import (
	"os"
	"sync"
)

var (
	textractOnce   sync.Once
	textractConfig *TextractConfig
)

type TextractConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// SNSTopicARN/RoleARN are only needed for async PDF analysis jobs.
	SNSTopicARN string
	RoleARN     string
}

func GetTextractConfig() *TextractConfig {
	textractOnce.Do(func() {
		loadDotEnv()
		textractConfig = &TextractConfig{
			Region:      os.Getenv("AWS_REGION"),
			Endpoint:    os.Getenv("AWS_ENDPOINT"),
			AccessKey:   os.Getenv("AWS_ACCESS_KEY"),
			SecretKey:   os.Getenv("AWS_SECRET_KEY"),
			SNSTopicARN: os.Getenv("TEXTRACT_SNS_TOPIC_ARN"),
			RoleARN:     os.Getenv("TEXTRACT_ROLE_ARN"),
		}
	})
	return textractConfig
}
