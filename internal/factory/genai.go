package factory

import (
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/config"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/genai"
)

// NewGenerator constructs the chat completion client from config.
func NewGenerator(cfg *config.Config) *genai.Client {
	return genai.New(genai.Options{
		BaseURL: cfg.GenAIBaseURL,
		APIKey:  cfg.GenAIAPIKey,
		Model:   cfg.GenAIModel,
		Timeout: cfg.GenerationTimeout,
	})
}
