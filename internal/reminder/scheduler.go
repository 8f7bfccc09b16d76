package reminder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval    = 1 * time.Second
	DefaultDeliveryTimeout = 10 * time.Second
)

// Notifier доставляет напоминание в чат.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Recorder сохраняет результат попытки доставки.
type Recorder interface {
	Record(ctx context.Context, d Delivery) error
}

// Scheduler раз в Interval забирает из Store наступившие напоминания и доставляет их.
// Доставка не более одного раза: упавшее напоминание уже удалено из Store и повторно не отправляется.
type Scheduler struct {
	store    *Store
	notifier Notifier

	Interval time.Duration
	Timeout  time.Duration
	Recorder Recorder

	now func() time.Time
}

func NewScheduler(store *Store, notifier Notifier) *Scheduler {
	return &Scheduler{
		store:    store,
		notifier: notifier,
		Interval: DefaultPollInterval,
		Timeout:  DefaultDeliveryTimeout,
		now:      time.Now,
	}
}

// Run опрашивает хранилище до отмены контекста.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithField("interval", interval).Info("reminder scheduler started")
	for {
		select {
		case <-ctx.Done():
			logrus.WithField("pending", s.store.Len()).Info("reminder scheduler stopped")
			return nil
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll доставляет всё, что наступило к текущему моменту, и возвращает количество попыток.
func (s *Scheduler) poll(ctx context.Context) int {
	due := s.store.DrainDue(s.now())
	if len(due) == 0 {
		return 0
	}
	logrus.WithField("count", len(due)).Debug("delivering due reminders")

	// Забранные напоминания из Store уже удалены, поэтому досылаем пачку даже при остановке:
	// каждая доставка ограничена Timeout, а не отменой родительского контекста.
	base := context.WithoutCancel(ctx)
	for _, r := range due {
		s.deliver(base, r)
	}
	return len(due)
}

func (s *Scheduler) deliver(ctx context.Context, r Reminder) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	err := s.notifier.Notify(dctx, r)
	cancel()

	fields := logrus.Fields{
		"reminder_id": r.ID,
		"channel":     r.Channel,
		"task":        r.TaskRef,
	}
	d := Delivery{
		ReminderID:  r.ID,
		Channel:     r.Channel,
		TaskRef:     r.TaskRef,
		Message:     r.Message,
		ScheduledAt: r.ScheduledAt,
		AttemptedAt: s.now(),
		Status:      StatusDelivered,
	}
	if err != nil {
		d.Status = StatusFailed
		d.Error = err.Error()
		logrus.WithError(err).WithFields(fields).Warn("reminder delivery failed, dropping")
	} else {
		logrus.WithFields(fields).Info("reminder delivered")
	}

	if s.Recorder == nil {
		return
	}
	rctx, rcancel := context.WithTimeout(ctx, timeout)
	defer rcancel()
	if err := s.Recorder.Record(rctx, d); err != nil {
		logrus.WithError(err).WithFields(fields).Warn("record delivery failed")
	}
}
