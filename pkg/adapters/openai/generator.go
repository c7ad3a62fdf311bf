// Package openai implements the generation service on top of the
// Azure OpenAI and OpenAI chat completions APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
	"github.com/jorge-rr00/newbackend/pkg/ports"
	goopenai "github.com/sashabaranov/go-openai"
)

const provider = "openai"

// Config selects the endpoint flavour and credentials.
type Config struct {
	// Azure switches URL layout and auth header to Azure OpenAI.
	Azure      bool
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	HTTPClient *http.Client
}

// Generator implements ports.Generator with chat completions.
type Generator struct {
	client *goopenai.Client
	model  string
}

var _ ports.Generator = (*Generator)(nil)

// New builds a Generator. For Azure the deployment name is used verbatim
// as the model route.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Deployment == "" {
		return nil, errors.New("openai: deployment (model) is required")
	}

	var cc goopenai.ClientConfig
	if cfg.Azure {
		if cfg.Endpoint == "" {
			return nil, errors.New("openai: azure endpoint is required")
		}
		cc = goopenai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.Endpoint, "/"))
		if cfg.APIVersion != "" {
			cc.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Deployment
		cc.AzureModelMapperFunc = func(string) string { return deployment }
	} else {
		cc = goopenai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			cc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
		}
	}
	if cfg.HTTPClient != nil {
		cc.HTTPClient = cfg.HTTPClient
	}

	return &Generator{
		client: goopenai.NewClientWithConfig(cc),
		model:  cfg.Deployment,
	}, nil
}

// Generate sends one chat completion. An empty or filtered completion is
// reported as a structured no-answer rather than an error.
func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) (domain.Generation, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    toMessages(prompt),
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Generation{}, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.Generation{NoAnswer: true}, nil
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if choice.FinishReason == goopenai.FinishReasonContentFilter || text == "" {
		return domain.Generation{NoAnswer: true}, nil
	}
	return domain.Generation{Text: text}, nil
}

func toMessages(p domain.Prompt) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(p.Messages)+1)
	if p.System != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: p.System})
	}
	for _, m := range p.Messages {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		case domain.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}

// mapError translates client errors into the faults taxonomy. Transport
// errors are wrapped untouched so net.Error and context errors still classify.
func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		pe := faults.NewProviderError(provider, apiErr.HTTPStatusCode, apiErr.Message)
		if code, ok := apiErr.Code.(string); ok {
			pe.Code = code
			if code == "content_filter" {
				pe.Type = faults.ErrorTypeContent
			}
		}
		return pe
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return faults.NewProviderError(provider, reqErr.HTTPStatusCode, reqErr.Error())
	}

	return fmt.Errorf("%s: %w", provider, err)
}
