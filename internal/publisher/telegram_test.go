package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBot is a mock implementing the telegoapi.BotAPI interface.
type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(*telego.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func TestNewTelegramPublisher_RequiresBot(t *testing.T) {
	_, err := NewTelegramPublisher(nil)
	assert.Error(t, err)
}

func TestPublish_TextOnly(t *testing.T) {
	bot := new(MockBot)
	p, err := NewTelegramPublisher(bot)
	require.NoError(t, err)

	ctx := context.Background()
	bot.On("SendMessage", ctx, mock.AnythingOfType("*telego.SendMessageParams")).
		Return(&telego.Message{MessageID: 321}, nil)

	messageID, err := p.Publish(ctx, -1001234, "post text", "")
	require.NoError(t, err)
	assert.Equal(t, 321, messageID)

	bot.AssertNotCalled(t, "SendPhoto", mock.Anything, mock.Anything)
}

func TestPublish_WithImageSendsPhoto(t *testing.T) {
	bot := new(MockBot)
	p, err := NewTelegramPublisher(bot)
	require.NoError(t, err)

	ctx := context.Background()
	bot.On("SendPhoto", ctx, mock.AnythingOfType("*telego.SendPhotoParams")).
		Return(&telego.Message{MessageID: 654}, nil)

	messageID, err := p.Publish(ctx, -1001234, "caption", "https://example.com/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, 654, messageID)

	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestPublish_EmptyPostRejected(t *testing.T) {
	bot := new(MockBot)
	p, err := NewTelegramPublisher(bot)
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), -1001234, "", "")
	assert.Error(t, err)
	bot.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestPublish_SendErrorPropagates(t *testing.T) {
	bot := new(MockBot)
	p, err := NewTelegramPublisher(bot)
	require.NoError(t, err)

	ctx := context.Background()
	bot.On("SendMessage", ctx, mock.Anything).Return(nil, errors.New("bot was blocked"))

	_, err = p.Publish(ctx, -1001234, "text", "")
	assert.Error(t, err)
}

func TestCleanChannelID(t *testing.T) {
	cases := map[string]string{
		"-1001234567": "1234567",
		"-5678":       "5678",
		"91011":       "91011",
	}
	for input, want := range cases {
		assert.Equal(t, want, cleanChannelID(input), "input %q", input)
	}
}

func TestPostLink(t *testing.T) {
	assert.Equal(t, "https://t.me/c/1234567/42", PostLink(-1001234567, 42))
	assert.Equal(t, "https://t.me/c/99/7", PostLink(-99, 7))
}
