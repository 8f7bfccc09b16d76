package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"example.com/slackpoints-bot/internal/reminder"
	"example.com/slackpoints-bot/internal/slackbot"
)

const maxDeliveriesLimit = 500

// reminderCommand обрабатывает slash-команду /reminder: публикует в канал форму напоминания.
func (s *Server) reminderCommand(c *gin.Context) {
	cmd, err := slack.SlashCommandParse(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid slash command"})
		return
	}
	if cmd.UserID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "No pending tasks available"})
		return
	}

	ctx := c.Request.Context()
	var options []slackbot.TaskOption
	if s.deps.Tasks != nil {
		pending, err := s.deps.Tasks.PendingTasks(ctx, cmd.UserID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", cmd.UserID).Warn("pending tasks lookup failed")
		}
		for _, t := range pending {
			options = append(options, slackbot.TaskOption{Value: t.Ref(), Label: t.Label()})
		}
	}

	if err := s.deps.Slack.PostForm(ctx, cmd.ChannelID, options); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "failed to post reminder form"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// interactive обрабатывает нажатия в Block Kit. Slack ждёт 200 даже на ошибки ввода.
func (s *Server) interactive(c *gin.Context) {
	raw := c.PostForm("payload")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payload"})
		return
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(raw), &cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 ||
		cb.ActionCallback.BlockActions[0].ActionID != slackbot.ActionSubmit {
		c.Status(http.StatusOK)
		return
	}

	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}

	if channelID == "" {
		// без канала некуда ни доставить напоминание, ни ответить ephemeral
		logrus.WithError(errMissingField("channel")).WithField("user_id", cb.User.ID).Info("reminder form rejected")
		c.Status(http.StatusOK)
		return
	}

	form, err := readReminderForm(cb.BlockActionState)
	if err == nil {
		form.at, err = reminder.ParseSchedule(form.date, form.clock, s.deps.Location)
	}
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"channel": channelID, "user_id": cb.User.ID}).Info("reminder form rejected")
		if perr := s.deps.Slack.PostEphemeral(c.Request.Context(), channelID, cb.User.ID, slackbot.ErrorBlocks(err.Error())...); perr != nil {
			c.Error(perr)
		}
		c.Status(http.StatusOK)
		return
	}

	r := s.deps.Store.Add(reminder.Reminder{
		Channel:     channelID,
		Message:     form.message,
		ScheduledAt: form.at,
		TaskRef:     form.task,
	})
	logrus.WithFields(logrus.Fields{
		"reminder_id": r.ID,
		"channel":     r.Channel,
		"task":        r.TaskRef,
		"at":          r.ScheduledAt,
		"user_id":     cb.User.ID,
	}).Info("reminder scheduled")

	c.JSON(http.StatusOK, gin.H{
		"replace_original": true,
		"blocks":           slackbot.ConfirmationBlocks(r),
	})
}

type reminderForm struct {
	date    string
	clock   string
	message string
	task    string
	at      time.Time
}

func readReminderForm(state *slack.BlockActionStates) (reminderForm, error) {
	if state == nil {
		return reminderForm{}, errMissingField("state")
	}
	get := func(block, action string) (slack.BlockAction, bool) {
		b, ok := state.Values[block]
		if !ok {
			return slack.BlockAction{}, false
		}
		a, ok := b[action]
		return a, ok
	}

	var f reminderForm
	if a, ok := get(slackbot.BlockDate, slackbot.ActionDate); ok {
		f.date = a.SelectedDate
	}
	if a, ok := get(slackbot.BlockTime, slackbot.ActionTime); ok {
		f.clock = a.SelectedTime
	}
	if a, ok := get(slackbot.BlockMessage, slackbot.ActionMessage); ok {
		f.message = a.Value
	}
	if a, ok := get(slackbot.BlockTask, slackbot.ActionTask); ok {
		f.task = a.SelectedOption.Value
	}
	if f.task == "" {
		return reminderForm{}, errMissingField("task")
	}
	return f, nil
}

func (s *Server) listDeliveries(c *gin.Context) {
	if s.deps.Deliveries == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery log disabled"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxDeliveriesLimit)
	}

	items, err := s.deps.Deliveries.Recent(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read delivery log"})
		return
	}
	if items == nil {
		items = []reminder.Delivery{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "deliveries": items})
}
