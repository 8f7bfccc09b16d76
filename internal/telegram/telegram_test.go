package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/slackpoints-bot/internal/reminder"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	err     error
	updates chan tgbotapi.Update
	stopped bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) Sent() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: 99, UserName: "tester"},
	}}
}

func TestParseChannel(t *testing.T) {
	id, err := ParseChannel(ChannelFor(-100123))
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), id)

	for _, bad := range []string{"C123", "telegram:", "telegram:abc", "slack:1"} {
		_, err := ParseChannel(bad)
		assert.ErrorIs(t, err, ErrInvalidChat, bad)
	}
}

func TestNotifierSendsMarkdown(t *testing.T) {
	api := newFakeAPI()
	n := NewNotifier(api)

	err := n.Notify(context.Background(), reminder.Reminder{Channel: "telegram:77", Message: "check deploy", TaskRef: reminder.NoTask})
	require.NoError(t, err)

	sent := api.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(77), sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, sent[0].ParseMode)
	assert.Equal(t, "⏰ *Reminder:* check deploy\n*Task ID:* no\\_task", sent[0].Text)
}

func TestNotifierErrors(t *testing.T) {
	api := newFakeAPI()
	api.err = errors.New("Forbidden: bot was blocked by the user")
	n := NewNotifier(api)

	err := n.Notify(context.Background(), reminder.Reminder{Channel: "telegram:77"})
	assert.ErrorContains(t, err, "blocked")

	err = n.Notify(context.Background(), reminder.Reminder{Channel: "C1"})
	assert.ErrorIs(t, err, ErrInvalidChat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = n.Notify(ctx, reminder.Reminder{Channel: "telegram:77"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, api.Sent(), 1)
}

type blockingSender struct {
	release chan struct{}
}

func (b blockingSender) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-b.release
	return tgbotapi.Message{}, nil
}

func TestNotifierHonoursDeliveryTimeout(t *testing.T) {
	api := blockingSender{release: make(chan struct{})}
	defer close(api.release)
	n := NewNotifier(api)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := n.Notify(ctx, reminder.Reminder{Channel: "telegram:77", Message: "stand-up"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClientTimeoutCoversLongPoll(t *testing.T) {
	assert.Equal(t, 40*time.Second, ClientTimeout(10*time.Second))
	assert.Equal(t, 30*time.Second, ClientTimeout(0))
}

func TestBotRemindCommand(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	api := newFakeAPI()
	store := reminder.NewStore()
	b := NewBot(api, store, loc)

	b.handleUpdate(textUpdate(5, "/remind 2026-10-20 15:30 42 release sync call"))

	due := store.DrainDue(time.Date(2026, 10, 20, 15, 30, 0, 0, loc))
	require.Len(t, due, 1)
	assert.Equal(t, "telegram:5", due[0].Channel)
	assert.Equal(t, "release sync call", due[0].Message)
	assert.Equal(t, "42", due[0].TaskRef)

	sent := api.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "20.10.2026 15:30")
}

func TestBotRemindCommandRejectsBadInput(t *testing.T) {
	api := newFakeAPI()
	store := reminder.NewStore()
	b := NewBot(api, store, time.UTC)

	b.handleUpdate(textUpdate(5, "/remind"))
	b.handleUpdate(textUpdate(5, "/remind tomorrow 10:00 42 hi"))
	b.handleUpdate(textUpdate(5, "/reminders"))
	b.handleUpdate(textUpdate(5, "hello"))
	b.handleUpdate(tgbotapi.Update{})

	assert.Equal(t, 0, store.Len())
	sent := api.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "/remind YYYY-MM-DD HH:MM TASK")
	assert.Contains(t, sent[1].Text, "tomorrow 10:00")
}

func TestBotStartStopsOnCancel(t *testing.T) {
	api := newFakeAPI()
	store := reminder.NewStore()
	b := NewBot(api, store, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	api.updates <- textUpdate(1, "/chatid")
	require.Eventually(t, func() bool { return len(api.Sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Chat ID: `1`", api.Sent()[0].Text)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	api.mu.Lock()
	assert.True(t, api.stopped)
	api.mu.Unlock()
}
