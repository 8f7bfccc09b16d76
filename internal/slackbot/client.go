package slackbot

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"example.com/slackpoints-bot/internal/reminder"
)

// Client обёртка над Slack Web API: доставка напоминаний и отправка форм.
type Client struct {
	api *slack.Client
}

// New создаёт клиента. apiURL переопределяет адрес Web API (нужно для тестов), должен заканчиваться на "/".
func New(token, apiURL string) *Client {
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Client{api: slack.New(token, opts...)}
}

// Notify отправляет напоминание в канал через chat.postMessage.
func (c *Client) Notify(ctx context.Context, r reminder.Reminder) error {
	_, ts, err := c.api.PostMessageContext(ctx, r.Channel,
		slack.MsgOptionText("Reminder: "+r.Message, false),
		slack.MsgOptionBlocks(ReminderBlocks(r)...),
	)
	if err != nil {
		return fmt.Errorf("post reminder to %s: %w", r.Channel, err)
	}
	logrus.WithFields(logrus.Fields{"channel": r.Channel, "ts": ts}).Debug("slack message sent")
	return nil
}

// PostForm публикует в канал форму создания напоминания.
func (c *Client) PostForm(ctx context.Context, channelID string, options []TaskOption) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText("Schedule a reminder", false),
		slack.MsgOptionBlocks(ReminderFormBlocks(options)...),
	)
	if err != nil {
		return fmt.Errorf("post reminder form to %s: %w", channelID, err)
	}
	return nil
}

// PostEphemeral показывает сообщение только пользователю userID.
func (c *Client) PostEphemeral(ctx context.Context, channelID, userID string, blocks ...slack.Block) error {
	_, err := c.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("post ephemeral to %s/%s: %w", channelID, userID, err)
	}
	return nil
}
