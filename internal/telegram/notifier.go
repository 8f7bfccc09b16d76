package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"example.com/slackpoints-bot/internal/reminder"
)

// Scheme префикс каналов Telegram в напоминаниях: "telegram:<chat_id>".
const Scheme = "telegram"

var ErrInvalidChat = errors.New("invalid telegram chat")

// Sender часть BotAPI, через которую уходят сообщения.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChannelFor адрес чата в формате канала напоминания.
func ChannelFor(chatID int64) string {
	return Scheme + ":" + strconv.FormatInt(chatID, 10)
}

// ParseChannel достаёт chat id из "telegram:<chat_id>".
func ParseChannel(channel string) (int64, error) {
	raw, ok := strings.CutPrefix(channel, Scheme+":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChat, channel)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChat, channel)
	}
	return id, nil
}

// Notifier доставляет напоминания в чаты Telegram.
type Notifier struct {
	api Sender
}

func NewNotifier(api Sender) *Notifier {
	return &Notifier{api: api}
}

// Notify ждёт отправку не дольше ctx. BotAPI контекст не принимает, поэтому Send идёт
// в отдельной горутине; зависший запрос дальше ограничен таймаутом http клиента из Connect.
func (n *Notifier) Notify(ctx context.Context, r reminder.Reminder) error {
	chatID, err := ParseChannel(r.Channel)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, FormatReminder(r))
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent := make(chan error, 1)
	go func() {
		_, err := n.api.Send(msg)
		sent <- err
	}()

	select {
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("send reminder to chat %d: %w", chatID, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send reminder to chat %d: %w", chatID, ctx.Err())
	}
	logrus.WithFields(logrus.Fields{"chat_id": chatID}).Debug("message sent")
	return nil
}

// FormatReminder текст напоминания для Telegram (Markdown).
func FormatReminder(r reminder.Reminder) string {
	return fmt.Sprintf("⏰ *Reminder:* %s\n*Task ID:* %s",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, r.Message),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, r.TaskRef))
}
