package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dn0sh/travel-content-bot/internal/config"
)

// OpenAIClient implements TextGenerator backed by an OpenAI-compatible chat
// completions API. Selected via TEXT_BACKEND=openai.
type OpenAIClient struct {
	apiURL     string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

var _ TextGenerator = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		apiURL:    cfg.APIURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Model reports the configured chat model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// GenerateText writes a travel post for the given theme prompt.
func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, postSystemPrompt, prompt, false)
}

// GenerateImagePrompt derives an image description from post text.
func (c *OpenAIClient) GenerateImagePrompt(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, imagePromptSystemPrompt, text, false)
}

// GenerateThemes produces count travel themes, falling back to the static
// list when the backend fails or the payload is unusable.
func (c *OpenAIClient) GenerateThemes(ctx context.Context, count int) ([]string, error) {
	userPrompt := fmt.Sprintf("Сгенерируй %d уникальных тем для постов о путешествиях, избегая повторов и стандартных примеров", count)
	raw, err := c.complete(ctx, fmt.Sprintf(themesSystemPrompt, count), userPrompt, true)
	if err != nil {
		log.Printf("[OpenAI] Theme generation failed, serving fallback themes: %v", err)
		return fallback(count), nil
	}

	themes, err := parseThemesPayload(raw, count)
	if err != nil {
		log.Printf("[OpenAI] Theme payload unusable, serving fallback themes: %v", err)
		return fallback(count), nil
	}
	return themes, nil
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	if c.apiKey == "" || c.apiURL == "" {
		return "", fmt.Errorf("openai client misconfigured")
	}

	request := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   c.maxTokens,
	}
	if jsonMode {
		request.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// NewTextGenerator selects the text backend from configuration.
func NewTextGenerator(cfg *config.Config) TextGenerator {
	if cfg.TextBackend == "openai" {
		return NewOpenAIClient(cfg.OpenAI)
	}
	return NewYandexGPTClient(cfg.Yandex)
}
