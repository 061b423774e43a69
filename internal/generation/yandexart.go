package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dn0sh/travel-content-bot/internal/config"
)

const (
	yandexOperationsURL = "https://llm.api.cloud.yandex.net/operations/"
	artPollInterval     = time.Second
	artPollTimeout      = 2 * time.Minute
	// artStyleSuffix steers YandexART towards photorealistic output.
	artStyleSuffix = "реалистичное фото, высокая детализация, профессиональная фотография"
)

// YandexArtClient implements ImageGenerator backed by the asynchronous
// YandexART image generation API: submit a generation operation, poll until
// done, decode the image and store it under the media directory.
type YandexArtClient struct {
	apiURL     string
	apiKey     string
	modelURI   string
	model      string
	mediaDir   string
	httpClient *http.Client
}

var _ ImageGenerator = (*YandexArtClient)(nil)

// NewYandexArtClient builds a client from configuration. Images are written
// into mediaDir, created on demand.
func NewYandexArtClient(cfg config.YandexConfig, mediaDir string) *YandexArtClient {
	return &YandexArtClient{
		apiURL:   cfg.ArtAPIURL,
		apiKey:   cfg.ArtAPIKey,
		modelURI: fmt.Sprintf("art://%s/%s", cfg.FolderID, cfg.ArtModel),
		model:    cfg.ArtModel,
		mediaDir: mediaDir,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Model reports the configured YandexART model name.
func (c *YandexArtClient) Model() string {
	return c.model
}

type artGenerationRequest struct {
	ModelURI          string               `json:"modelUri"`
	GenerationOptions artGenerationOptions `json:"generationOptions"`
	Messages          []artMessage         `json:"messages"`
}

type artGenerationOptions struct {
	Seed        int            `json:"seed"`
	AspectRatio artAspectRatio `json:"aspectRatio"`
}

type artAspectRatio struct {
	WidthRatio  int `json:"widthRatio"`
	HeightRatio int `json:"heightRatio"`
}

type artMessage struct {
	Weight int    `json:"weight"`
	Text   string `json:"text"`
}

type artOperation struct {
	ID       string `json:"id"`
	Done     bool   `json:"done"`
	Response struct {
		Image string `json:"image"`
	} `json:"response"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImage renders an image for the prompt and returns the path of the
// saved file.
func (c *YandexArtClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" || c.apiURL == "" {
		return "", fmt.Errorf("yandexart client misconfigured")
	}

	operationID, err := c.submit(ctx, prompt)
	if err != nil {
		return "", err
	}

	image, err := c.await(ctx, operationID)
	if err != nil {
		return "", err
	}

	return c.save(image)
}

func (c *YandexArtClient) submit(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(artGenerationRequest{
		ModelURI: c.modelURI,
		GenerationOptions: artGenerationOptions{
			Seed:        42,
			AspectRatio: artAspectRatio{WidthRatio: 1, HeightRatio: 1},
		},
		Messages: []artMessage{
			{Weight: 1, Text: prompt + ", " + artStyleSuffix},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("yandexart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("yandexart error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var op artOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return "", fmt.Errorf("decode operation: %w", err)
	}
	if op.ID == "" {
		return "", fmt.Errorf("yandexart returned no operation id")
	}
	return op.ID, nil
}

// await polls the operations endpoint until the generation finishes.
func (c *YandexArtClient) await(ctx context.Context, operationID string) (string, error) {
	deadline := time.Now().Add(artPollTimeout)
	statusURL := yandexOperationsURL + url.PathEscape(operationID)

	for {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("yandexart operation %s timed out", operationID)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return "", fmt.Errorf("new status request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("yandexart status request: %w", err)
		}

		var op artOperation
		decodeErr := json.NewDecoder(resp.Body).Decode(&op)
		resp.Body.Close()
		if decodeErr != nil {
			return "", fmt.Errorf("decode operation status: %w", decodeErr)
		}

		if op.Done {
			if op.Error.Message != "" {
				return "", fmt.Errorf("yandexart operation failed: %s", op.Error.Message)
			}
			if op.Response.Image == "" {
				return "", fmt.Errorf("yandexart operation finished without image")
			}
			return op.Response.Image, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(artPollInterval):
		}
	}
}

func (c *YandexArtClient) save(imageBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("decode image payload: %w", err)
	}

	if err := os.MkdirAll(c.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name := fmt.Sprintf("generated_image_%s.jpg", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(c.mediaDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return path, nil
}
