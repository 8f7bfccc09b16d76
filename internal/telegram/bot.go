package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"example.com/slackpoints-bot/internal/reminder"
)

const usage = "Использование: /remind YYYY-MM-DD HH:MM TASK текст\nПример: /remind 2026-10-20 15:30 42 созвон по релизу\nTASK: номер задачи или no\\_task"

// API часть tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot принимает команды из Telegram и складывает напоминания в общий Store.
type Bot struct {
	api   API
	store *reminder.Store
	loc   *time.Location
}

const pollTimeout = 30

// ClientTimeout таймаут http клиента бота: long poll плюс запас на отправку.
func ClientTimeout(sendTimeout time.Duration) time.Duration {
	return pollTimeout*time.Second + sendTimeout
}

// Connect авторизуется в Telegram по токену. Ни один запрос к API не висит дольше
// ClientTimeout(sendTimeout).
func Connect(token string, sendTimeout time.Duration) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: ClientTimeout(sendTimeout)}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	logrus.WithField("username", api.Self.UserName).Info("telegram bot authorized")
	return api, nil
}

func NewBot(api API, store *reminder.Store, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{api: api, store: store, loc: loc}
}

// Start запускает обработку апдейтов до завершения контекста.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("telegram api is not initialized")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeout

	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(upd)
		}
	}
}

func (b *Bot) handleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}

	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	switch {
	case text == "/chatid":
		b.reply(chatID, fmt.Sprintf("Chat ID: `%d`", chatID))
	case text == "/remind" || strings.HasPrefix(text, "/remind "):
		b.cmdRemind(upd.Message, text)
	case text == "/start" || text == "/help":
		b.reply(chatID, "*Напоминания:*\n/remind YYYY-MM-DD HH:MM TASK текст - запланировать напоминание в этот чат\n/chatid - показать ID чата")
	default:
		// Игнорируем неизвестные команды и сообщения
	}
}

// cmdRemind обрабатывает команду /remind YYYY-MM-DD HH:MM TASK текст
func (b *Bot) cmdRemind(msg *tgbotapi.Message, text string) {
	chatID := msg.Chat.ID
	parts := strings.Fields(text)
	if len(parts) < 5 {
		b.reply(chatID, usage)
		return
	}

	at, err := reminder.ParseSchedule(parts[1], parts[2], b.loc)
	if err != nil {
		b.reply(chatID, "Неверные дата или время: "+tgbotapi.EscapeText(tgbotapi.ModeMarkdown, parts[1]+" "+parts[2])+"\n"+usage)
		return
	}

	r := b.store.Add(reminder.Reminder{
		Channel:     ChannelFor(chatID),
		Message:     strings.Join(parts[4:], " "),
		ScheduledAt: at,
		TaskRef:     parts[3],
	})

	fields := logrus.Fields{"reminder_id": r.ID, "chat_id": chatID, "task": r.TaskRef, "at": at}
	if msg.From != nil {
		fields["user_id"] = msg.From.ID
	}
	logrus.WithFields(fields).Info("reminder scheduled")

	b.reply(chatID, fmt.Sprintf("✅ Напоминание запланировано на %s\nЗадача: %s",
		at.Format("02.01.2006 15:04"), tgbotapi.EscapeText(tgbotapi.ModeMarkdown, r.TaskRef)))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		logrus.WithError(err).Warn("send message failed")
	} else {
		logrus.WithFields(logrus.Fields{"chat_id": chatID}).Debug("message sent")
	}
}
