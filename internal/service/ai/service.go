package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/nova-labs/nova-chat/server/internal/config"
)

// Providers the completion endpoint can route to.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderArk        = "ark"
)

// Service produces completions by routing a (provider, model) pair to the
// matching backend. Model instances are built per request because the model
// id travels with the request, not the deployment.
type Service struct {
	cfg          config.AIConfig
	geminiClient *genai.Client
}

// NewService validates provider credentials and prepares shared clients.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	if !cfg.Enabled() {
		return nil, errors.New("no completion provider configured")
	}

	svc := &Service{cfg: cfg}
	if cfg.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		svc.geminiClient = client
	}
	return svc, nil
}

// Complete generates one assistant reply for a single user message.
func (s *Service) Complete(ctx context.Context, message, provider, modelID string) (string, error) {
	chatModel, err := s.chatModel(ctx, provider, modelID)
	if err != nil {
		return "", err
	}

	response, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(message)}, s.options()...)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}

	log.Printf("[ai] completion provider=%s model=%s length=%d", provider, modelID, len(response.Content))
	return response.Content, nil
}

// Stream returns the reply as a chunk stream for SSE delivery.
func (s *Service) Stream(ctx context.Context, message, provider, modelID string) (*schema.StreamReader[*schema.Message], error) {
	chatModel, err := s.chatModel(ctx, provider, modelID)
	if err != nil {
		return nil, err
	}

	stream, err := chatModel.Stream(ctx, []*schema.Message{schema.UserMessage(message)}, s.options()...)
	if err != nil {
		return nil, fmt.Errorf("stream completion: %w", err)
	}
	return stream, nil
}

func (s *Service) chatModel(ctx context.Context, provider, modelID string) (model.BaseChatModel, error) {
	if modelID == "" {
		return nil, errors.New("model id is required")
	}

	switch provider {
	case ProviderOpenRouter:
		if s.cfg.OpenRouterAPIKey == "" {
			return nil, errors.New("openrouter API key not configured")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  s.cfg.OpenRouterAPIKey,
			BaseURL: s.cfg.OpenRouterBaseURL,
			Model:   modelID,
		})
	case ProviderGemini:
		if s.geminiClient == nil {
			return nil, errors.New("gemini API key not configured")
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: s.geminiClient,
			Model:  modelID,
		})
	case ProviderArk:
		if s.cfg.ArkAPIKey == "" {
			return nil, errors.New("ark API key not configured")
		}
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:  s.cfg.ArkAPIKey,
			BaseURL: s.cfg.ArkBaseURL,
			Region:  s.cfg.ArkRegion,
			Model:   modelID,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (s *Service) options() []model.Option {
	var opts []model.Option
	if s.cfg.Temperature != nil {
		opts = append(opts, model.WithTemperature(*s.cfg.Temperature))
	}
	if s.cfg.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*s.cfg.MaxTokens))
	}
	return opts
}
