// Package generation provides the AI backends producing post content: text
// and theme generation via YandexGPT or an OpenAI-compatible API, image
// generation via YandexART. The callers own retries; these clients make a
// single attempt per call.
package generation

import "context"

// TextGenerator produces post text, image prompts and travel themes.
type TextGenerator interface {
	// GenerateText writes a full travel post for the given theme prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateImagePrompt derives an image description from post text.
	GenerateImagePrompt(ctx context.Context, text string) (string, error)
	// GenerateThemes produces count travel themes.
	GenerateThemes(ctx context.Context, count int) ([]string, error)
	// Model reports the backend model identifier, recorded on each post.
	Model() string
}

// ImageGenerator renders an image for a prompt and returns a reference to
// it (a local file path or URL usable by the publisher).
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Model() string
}

// FallbackThemes is served when the backend fails or returns an unusable
// payload, so the batch flow stays operable without the API.
var FallbackThemes = []string{
	"❄️ Зимние чудеса Санкт-Петербурга",
	"🏰 Исторические сокровища Италии",
	"🌌 Ночные приключения под звёздным небом Сахары",
	"🍜 Гастрономическое путешествие по уличным рынкам Бангкока",
	"🌿 Экотуризм на Алтае",
	"🌄 Удивительные пейзажи Новой Зеландии",
	"🏔️ Горные приключения в Альпах",
	"🌴 Экзотическая природа и традиции Таиланда",
}
