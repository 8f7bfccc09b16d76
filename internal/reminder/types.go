package reminder

import "time"

// NoTask используется как ссылка на задачу, когда напоминание ни к какой задаче не привязано.
const NoTask = "no_task"

// Reminder разовое напоминание в канал. После создания не меняется.
type Reminder struct {
	ID          string
	Channel     string
	Message     string
	ScheduledAt time.Time
	TaskRef     string
	CreatedAt   time.Time
}

// Due сообщает, наступило ли время доставки.
func (r Reminder) Due(now time.Time) bool {
	return !r.ScheduledAt.After(now)
}

// DeliveryStatus результат попытки доставки
type DeliveryStatus string

const (
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// Delivery описывает одну попытку доставки напоминания.
type Delivery struct {
	ID          int64          `json:"id"`
	ReminderID  string         `json:"reminder_id"`
	Channel     string         `json:"channel"`
	TaskRef     string         `json:"task_ref"`
	Message     string         `json:"message"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	AttemptedAt time.Time      `json:"attempted_at"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
}
