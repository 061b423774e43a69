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

const themesSystemPrompt = `Ты эксперт по путешествиям. Строго следуй инструкциям.

ЗАДАЧА:
Сгенерируй %d уникальных тем для постов о путешествиях в строго заданном JSON-формате.

ТРЕБОВАНИЯ:
1. Каждая тема начинается с эмодзи.
2. Формат темы: "эмодзи + краткое описание направления" (например: "❄️ Зимние чудеса Санкт-Петербурга").
3. Обязательно включи хотя бы одну тему о путешествиях по России.
4. Темы должны охватывать разные типы путешествий (природа, культура, гастрономия, приключения).
5. Избегай повторяющихся форматов и локаций.
6. Используй только русский язык.
7. НЕ ДОБАВЛЯЙ ПОЯСНЕНИЙ, ТОЛЬКО JSON.
8. СТРОГО СЛЕДУЙ СТРУКТУРЕ: { "themes": ["тема1", "тема2", ...] }.`

const postSystemPrompt = `Ты автор тревел-блога. Напиши увлекательный пост для Telegram-канала
на заданную тему: живым языком, с конкретными местами и деталями, без хэштегов,
не длиннее 900 символов.`

const imagePromptSystemPrompt = `Ты готовишь описание изображения для генеративной модели.
По тексту поста составь одно короткое описание сцены (до 400 символов), без упоминания текста и логотипов.`

// YandexGPTClient implements TextGenerator backed by the YandexGPT
// foundation models completion API.
type YandexGPTClient struct {
	apiURL     string
	apiKey     string
	modelURI   string
	model      string
	httpClient *http.Client
}

var _ TextGenerator = (*YandexGPTClient)(nil)

// NewYandexGPTClient builds a client from configuration.
func NewYandexGPTClient(cfg config.YandexConfig) *YandexGPTClient {
	return &YandexGPTClient{
		apiURL:   cfg.GPTAPIURL,
		apiKey:   cfg.GPTAPIKey,
		modelURI: fmt.Sprintf("gpt://%s/%s", cfg.FolderID, cfg.GPTModel),
		model:    cfg.GPTModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Model reports the configured YandexGPT model name.
func (c *YandexGPTClient) Model() string {
	return c.model
}

// GenerateText writes a travel post for the given theme prompt.
func (c *YandexGPTClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, postSystemPrompt, prompt, 2000)
}

// GenerateImagePrompt derives an image description from post text.
func (c *YandexGPTClient) GenerateImagePrompt(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, imagePromptSystemPrompt, text, 500)
}

// GenerateThemes produces count travel themes. On any backend or parsing
// failure it falls back to the static theme list.
func (c *YandexGPTClient) GenerateThemes(ctx context.Context, count int) ([]string, error) {
	userPrompt := fmt.Sprintf("Сгенерируй %d уникальных тем для постов о путешествиях, избегая повторов и стандартных примеров", count)
	raw, err := c.complete(ctx, fmt.Sprintf(themesSystemPrompt, count), userPrompt, 2000)
	if err != nil {
		log.Printf("[YandexGPT] Theme generation failed, serving fallback themes: %v", err)
		return fallback(count), nil
	}

	themes, err := parseThemesPayload(raw, count)
	if err != nil {
		log.Printf("[YandexGPT] Theme payload unusable, serving fallback themes: %v", err)
		return fallback(count), nil
	}
	return themes, nil
}

type yandexCompletionRequest struct {
	ModelURI          string                  `json:"modelUri"`
	CompletionOptions yandexCompletionOptions `json:"completionOptions"`
	Messages          []yandexMessage         `json:"messages"`
}

type yandexCompletionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexCompletionResponse struct {
	Result struct {
		Alternatives []struct {
			Message yandexMessage `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

func (c *YandexGPTClient) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.apiKey == "" || c.apiURL == "" {
		return "", fmt.Errorf("yandexgpt client misconfigured")
	}

	body, err := json.Marshal(yandexCompletionRequest{
		ModelURI: c.modelURI,
		CompletionOptions: yandexCompletionOptions{
			Temperature: 0.7,
			MaxTokens:   maxTokens,
		},
		Messages: []yandexMessage{
			{Role: "system", Text: systemPrompt},
			{Role: "user", Text: userPrompt},
		},
	})
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
		return "", fmt.Errorf("yandexgpt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("yandexgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed yandexCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Result.Alternatives) == 0 {
		return "", fmt.Errorf("yandexgpt returned no alternatives")
	}
	return strings.TrimSpace(parsed.Result.Alternatives[0].Message.Text), nil
}

// parseThemesPayload extracts the themes list from a model response,
// tolerating markdown code fences around the JSON.
func parseThemesPayload(raw string, count int) ([]string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")

	var parsed struct {
		Themes []string `json:"themes"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal themes: %w", err)
	}
	if len(parsed.Themes) == 0 {
		return nil, fmt.Errorf("themes payload is empty")
	}
	if len(parsed.Themes) != count {
		return nil, fmt.Errorf("expected %d themes, got %d", count, len(parsed.Themes))
	}
	return parsed.Themes, nil
}

// fallback serves up to count static themes, cycling when count exceeds the
// fallback list.
func fallback(count int) []string {
	themes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		themes = append(themes, FallbackThemes[i%len(FallbackThemes)])
	}
	return themes
}
