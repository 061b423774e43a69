package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dn0sh/travel-content-bot/internal/config"
)

func TestParseThemesPayload(t *testing.T) {
	raw := `{"themes": ["🏔 Альпы", "🌴 Бали", "❄️ Байкал"]}`
	themes, err := parseThemesPayload(raw, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"🏔 Альпы", "🌴 Бали", "❄️ Байкал"}, themes)
}

func TestParseThemesPayload_StripsCodeFences(t *testing.T) {
	raw := "```json\n{\"themes\": [\"🏔 Альпы\", \"🌴 Бали\"]}\n```"
	themes, err := parseThemesPayload(raw, 2)
	require.NoError(t, err)
	assert.Len(t, themes, 2)
}

func TestParseThemesPayload_Rejects(t *testing.T) {
	_, err := parseThemesPayload("not json", 2)
	assert.Error(t, err)

	_, err = parseThemesPayload(`{"themes": []}`, 2)
	assert.Error(t, err)

	_, err = parseThemesPayload(`{"themes": ["one"]}`, 2)
	assert.Error(t, err, "count mismatch must be rejected")
}

func TestFallback_CyclesList(t *testing.T) {
	themes := fallback(len(FallbackThemes) + 3)
	require.Len(t, themes, len(FallbackThemes)+3)
	assert.Equal(t, FallbackThemes[0], themes[len(FallbackThemes)])
}

func TestYandexGPT_GenerateText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req yandexCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt://folder/yandexgpt/latest", req.ModelURI)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"alternatives": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "text": "  пост о горах  "}},
				},
			},
		})
	}))
	defer server.Close()

	client := NewYandexGPTClient(config.YandexConfig{
		FolderID:  "folder",
		GPTModel:  "yandexgpt/latest",
		GPTAPIURL: server.URL,
		GPTAPIKey: "test-key",
	})

	text, err := client.GenerateText(context.Background(), "🏔 Альпы")
	require.NoError(t, err)
	assert.Equal(t, "пост о горах", text)
}

func TestYandexGPT_ServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewYandexGPTClient(config.YandexConfig{
		FolderID:  "folder",
		GPTModel:  "yandexgpt/latest",
		GPTAPIURL: server.URL,
		GPTAPIKey: "test-key",
	})

	_, err := client.GenerateText(context.Background(), "тема")
	assert.Error(t, err)
}

func TestYandexGPT_ThemesFallBackOnBackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewYandexGPTClient(config.YandexConfig{
		FolderID:  "folder",
		GPTModel:  "yandexgpt/latest",
		GPTAPIURL: server.URL,
		GPTAPIKey: "test-key",
	})

	themes, err := client.GenerateThemes(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, themes, 5)
	assert.Equal(t, FallbackThemes[:5], themes)
}

func TestYandexGPT_MisconfiguredClientErrors(t *testing.T) {
	client := NewYandexGPTClient(config.YandexConfig{})
	_, err := client.GenerateText(context.Background(), "тема")
	assert.Error(t, err)
}
