package notifier

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

func TestNewAdminNotifier_Validation(t *testing.T) {
	_, err := NewAdminNotifier(nil, []int64{1})
	assert.Error(t, err)

	_, err = NewAdminNotifier(new(MockBot), nil)
	assert.Error(t, err)
}

func TestNotifyAdmins_SendsToEveryAdmin(t *testing.T) {
	bot := new(MockBot)
	n, err := NewAdminNotifier(bot, []int64{1, 2, 3})
	require.NoError(t, err)

	ctx := context.Background()
	bot.On("SendMessage", ctx, mock.AnythingOfType("*telego.SendMessageParams")).
		Return(&telego.Message{MessageID: 1}, nil).Times(3)

	n.NotifyAdmins(ctx, "done")
	bot.AssertExpectations(t)
}

func TestNotifyAdmins_OneFailureDoesNotBlockOthers(t *testing.T) {
	bot := new(MockBot)
	n, err := NewAdminNotifier(bot, []int64{1, 2})
	require.NoError(t, err)

	ctx := context.Background()
	bot.On("SendMessage", ctx, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
		return p.ChatID.ID == 1
	})).Return(nil, errors.New("blocked by user"))
	bot.On("SendMessage", ctx, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
		return p.ChatID.ID == 2
	})).Return(&telego.Message{MessageID: 1}, nil)

	n.NotifyAdmins(ctx, "done")
	bot.AssertNumberOfCalls(t, "SendMessage", 2)
}
