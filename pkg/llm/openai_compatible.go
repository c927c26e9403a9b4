package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatibleClient implements the Client interface for any
// OpenAI-compatible API. This includes services like Groq, Ollama, LocalAI,
// vLLM and Text Generation Inference.
type OpenAICompatibleClient struct {
	client *openai.Client
	config Config
}

// NewOpenAICompatibleClient creates a new client for any service that
// implements the OpenAI API specification. Use an empty apiKey for services
// that do not require authentication (a dummy key is substituted).
func NewOpenAICompatibleClient(baseURL, apiKey, model string, config Config) (*OpenAICompatibleClient, error) {
	if err := validateBaseURL(baseURL); err != nil {
		return nil, err
	}

	if model == "" {
		model = "gpt-3.5-turbo"
	}
	config.Model = model
	config.BaseURL = baseURL

	if apiKey == "" {
		apiKey = "dummy-key"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	// Many services expect "/v1" appended to the base URL.
	if !hasAPIPath(baseURL) {
		clientConfig.BaseURL = baseURL + "/v1"
	}

	return &OpenAICompatibleClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// NewGroqClient creates a client for Groq's OpenAI-compatible endpoint.
func NewGroqClient(apiKey, model string, config Config) (*OpenAICompatibleClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	return NewOpenAICompatibleClient("https://api.groq.com/openai/v1", apiKey, model, config)
}

// NewOllamaClient creates a client for a local Ollama instance.
func NewOllamaClient(baseURL, model string, config Config) (*OpenAICompatibleClient, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return NewOpenAICompatibleClient(baseURL, "", model, config)
}

// Chat sends a chat completion request to the OpenAI-compatible service.
func (c *OpenAICompatibleClient) Chat(ctx context.Context, messages []Message) (*Response, error) {
	req := c.buildChatRequest(messages, false, nil)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	response := &Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	if resp.Usage.TotalTokens > 0 {
		response.TokensUsed = &TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return response, nil
}

// ChatWithStructuredOutput sends a chat completion request in JSON mode.
// Not every compatible service honors response_format, so the schema is also
// injected as an instruction message.
func (c *OpenAICompatibleClient) ChatWithStructuredOutput(ctx context.Context, messages []Message, schema any) (json.RawMessage, error) {
	req := c.buildChatRequest(messages, true, schema)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	return json.RawMessage(ExtractJSON(resp.Choices[0].Message.Content)), nil
}

// Close cleans up resources (no-op for HTTP-based clients).
func (c *OpenAICompatibleClient) Close() error {
	return nil
}

func (c *OpenAICompatibleClient) buildChatRequest(messages []Message, structuredOutput bool, schema any) openai.ChatCompletionRequest {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: openaiMessages,
	}

	if c.config.Temperature != nil {
		req.Temperature = *c.config.Temperature
	}
	if c.config.MaxTokens != nil {
		req.MaxTokens = *c.config.MaxTokens
	}

	if structuredOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
		if schema != nil {
			if schemaBytes, err := json.Marshal(schema); err == nil {
				req.Messages = append(req.Messages, openai.ChatCompletionMessage{
					Role:    string(RoleUser),
					Content: fmt.Sprintf("Respond with a single JSON object matching this schema: %s", schemaBytes),
				})
			}
		}
	}

	return req
}

func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("baseURL cannot be empty")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("baseURL must include scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme")
	}

	return nil
}

// hasAPIPath reports whether the base URL already carries an API version path.
func hasAPIPath(baseURL string) bool {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, "/v1")
}
