package publication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dn0sh/travel-content-bot/internal/database"
	"github.com/dn0sh/travel-content-bot/internal/database/models"
	"github.com/dn0sh/travel-content-bot/internal/locales"
)

// --- Mocks ---

type MockPostStore struct {
	mock.Mock
}

func (m *MockPostStore) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	args := m.Called(ctx, id)
	if post, ok := args.Get(0).(*models.Post); ok {
		return post, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostStore) MarkPublished(ctx context.Context, id int64, publishedAt time.Time, messageID int) error {
	args := m.Called(ctx, id, publishedAt, messageID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channelID int64, text, imageRef string) (int, error) {
	args := m.Called(ctx, channelID, text, imageRef)
	return args.Int(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAdmins(ctx context.Context, message string) {
	m.Called(ctx, message)
}

func TestMain(m *testing.M) {
	locales.Init()
	m.Run()
}

const testChannelID = int64(-1001234567890)

func newTestHandler(t *testing.T) (*Handler, *MockPostStore, *MockPublisher, *MockNotifier) {
	t.Helper()
	store := new(MockPostStore)
	pub := new(MockPublisher)
	notif := new(MockNotifier)
	h, err := NewHandler(store, pub, notif, testChannelID)
	require.NoError(t, err)
	return h, store, pub, notif
}

func TestNewHandler_ValidatesDeps(t *testing.T) {
	store := new(MockPostStore)
	pub := new(MockPublisher)
	notif := new(MockNotifier)

	_, err := NewHandler(nil, pub, notif, testChannelID)
	assert.Error(t, err)
	_, err = NewHandler(store, nil, notif, testChannelID)
	assert.Error(t, err)
	_, err = NewHandler(store, pub, nil, testChannelID)
	assert.Error(t, err)
	_, err = NewHandler(store, pub, notif, 0)
	assert.Error(t, err)
}

func TestFire_PublishesAndMarksPublished(t *testing.T) {
	h, store, pub, notif := newTestHandler(t)
	ctx := context.Background()

	post := &models.Post{ID: 10, Text: "hello", ImageRef: "media/img.jpg"}
	store.On("GetByID", ctx, int64(10)).Return(post, nil)
	pub.On("Publish", ctx, testChannelID, "hello", "media/img.jpg").Return(777, nil)
	store.On("MarkPublished", ctx, int64(10), mock.AnythingOfType("time.Time"), 777).Return(nil)
	notif.On("NotifyAdmins", ctx, mock.AnythingOfType("string")).Once()

	err := h.Fire(ctx, 10)
	require.NoError(t, err)

	store.AssertExpectations(t)
	pub.AssertExpectations(t)
	notif.AssertExpectations(t)
}

func TestFire_AlreadyPublishedIsNoop(t *testing.T) {
	h, store, pub, notif := newTestHandler(t)
	ctx := context.Background()

	store.On("GetByID", ctx, int64(10)).Return(&models.Post{
		ID: 10, Published: true, ChannelMessageID: 555,
	}, nil)

	err := h.Fire(ctx, 10)
	require.NoError(t, err)

	// A duplicate firing must not touch the channel or the operators.
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notif.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFire_DeletedPostIsDropped(t *testing.T) {
	h, store, pub, notif := newTestHandler(t)
	ctx := context.Background()

	store.On("GetByID", ctx, int64(10)).Return(nil, database.ErrPostNotFound)

	err := h.Fire(ctx, 10)
	require.NoError(t, err)

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notif.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything)
}

func TestFire_LoadErrorPropagates(t *testing.T) {
	h, store, pub, _ := newTestHandler(t)
	ctx := context.Background()

	store.On("GetByID", ctx, int64(10)).Return(nil, errors.New("db down"))

	err := h.Fire(ctx, 10)
	assert.Error(t, err)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFire_PublishFailureNotifiesAndLeavesStateUntouched(t *testing.T) {
	h, store, pub, notif := newTestHandler(t)
	ctx := context.Background()

	store.On("GetByID", ctx, int64(10)).Return(&models.Post{ID: 10, Text: "hello"}, nil)
	pub.On("Publish", ctx, testChannelID, "hello", "").Return(0, errors.New("channel unreachable"))
	notif.On("NotifyAdmins", ctx, mock.AnythingOfType("string")).Once()

	err := h.Fire(ctx, 10)
	assert.Error(t, err)

	store.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notif.AssertExpectations(t)
}

func TestFire_ConcurrentCommitRaceIsBenign(t *testing.T) {
	h, store, pub, notif := newTestHandler(t)
	ctx := context.Background()

	store.On("GetByID", ctx, int64(10)).Return(&models.Post{ID: 10, Text: "hello"}, nil)
	pub.On("Publish", ctx, testChannelID, "hello", "").Return(888, nil)
	store.On("MarkPublished", ctx, int64(10), mock.AnythingOfType("time.Time"), 888).
		Return(database.ErrAlreadyPublished)

	err := h.Fire(ctx, 10)
	require.NoError(t, err)

	// The firing that won the race already notified; this one stays silent.
	notif.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything)
}

func TestFire_CommitFailureAfterSendPropagates(t *testing.T) {
	h, store, pub, notif := newTestHandler(t)
	ctx := context.Background()

	store.On("GetByID", ctx, int64(10)).Return(&models.Post{ID: 10, Text: "hello"}, nil)
	pub.On("Publish", ctx, testChannelID, "hello", "").Return(888, nil)
	store.On("MarkPublished", ctx, int64(10), mock.AnythingOfType("time.Time"), 888).
		Return(errors.New("db down"))

	err := h.Fire(ctx, 10)
	assert.Error(t, err)
	notif.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything)
}
