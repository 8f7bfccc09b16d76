package slackbot

import (
	"fmt"

	"github.com/slack-go/slack"

	"example.com/slackpoints-bot/internal/reminder"
)

// Идентификаторы блоков и действий формы напоминания.
const (
	BlockDate    = "reminder_date"
	BlockTime    = "reminder_time"
	BlockMessage = "reminder_message"
	BlockTask    = "reminder_task"

	ActionDate    = "select_date"
	ActionTime    = "select_time"
	ActionMessage = "message_input"
	ActionTask    = "select_task"
	ActionSubmit  = "submit_reminder"
)

// TaskOption пункт выпадающего списка задач в форме.
type TaskOption struct {
	Value string
	Label string
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// ReminderBlocks тело доставленного напоминания.
func ReminderBlocks(r reminder.Reminder) []slack.Block {
	return []slack.Block{
		slack.NewHeaderBlock(plain(":alarm_clock: Reminder Notification")),
		slack.NewSectionBlock(mrkdwn(fmt.Sprintf("*:bell: Reminder:* %s\n*Task ID:* %s", r.Message, r.TaskRef)), nil, nil),
		slack.NewDividerBlock(),
		slack.NewContextBlock("", mrkdwn(":bell: This is your scheduled reminder. Stay on top of your tasks!")),
	}
}

// ReminderFormBlocks форма создания напоминания: дата, время, текст, задача, кнопка.
func ReminderFormBlocks(options []TaskOption) []slack.Block {
	if len(options) == 0 {
		options = []TaskOption{{Value: reminder.NoTask, Label: "No pending tasks available"}}
	}
	opts := make([]*slack.OptionBlockObject, 0, len(options))
	for _, o := range options {
		opts = append(opts, slack.NewOptionBlockObject(o.Value, plain(truncate(o.Label, 75)), nil))
	}

	date := slack.NewDatePickerBlockElement(ActionDate)
	date.Placeholder = plain("Select a date")

	clock := slack.NewTimePickerBlockElement(ActionTime)
	clock.Placeholder = plain("Select a time")

	message := slack.NewPlainTextInputBlockElement(plain("Enter reminder message"), ActionMessage)

	task := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plain("Select a task"), ActionTask, opts...)

	submit := slack.NewButtonBlockElement(ActionSubmit, "", plain("Set Reminder"))

	return []slack.Block{
		slack.NewSectionBlock(mrkdwn("Please select the date, time, message, and task for your reminder."), nil, nil),
		slack.NewDividerBlock(),
		slack.NewInputBlock(BlockDate, plain("Date"), nil, date),
		slack.NewInputBlock(BlockTime, plain("Time"), nil, clock),
		slack.NewInputBlock(BlockMessage, plain("Message"), nil, message),
		slack.NewInputBlock(BlockTask, plain("Task"), nil, task),
		slack.NewActionBlock("", submit),
	}
}

// ConfirmationBlocks ответ на отправку формы.
func ConfirmationBlocks(r reminder.Reminder) []slack.Block {
	text := fmt.Sprintf("*Message:* %s\n*Scheduled For:* %s\n*Task ID:* %s",
		r.Message, r.ScheduledAt.Format("Monday, January 02 at 03:04 PM"), r.TaskRef)
	return []slack.Block{
		slack.NewHeaderBlock(plain(":white_check_mark: Reminder Scheduled!")),
		slack.NewSectionBlock(mrkdwn(text), nil, nil),
		slack.NewDividerBlock(),
		slack.NewContextBlock("", mrkdwn(":bell: You'll receive a reminder in the specified channel at the scheduled time.")),
	}
}

// ErrorBlocks эфемерное сообщение об ошибке ввода.
func ErrorBlocks(reason string) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(mrkdwn(">Oops! Something went wrong. Please try again with the correct command rules."), nil, nil),
		slack.NewSectionBlock(mrkdwn(reason), nil, nil),
	}
}

// Slack ограничивает текст option 75 символами.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
