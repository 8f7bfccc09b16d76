package deliverylog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure Go SQLite драйвер

	"example.com/slackpoints-bot/internal/reminder"
)

// Storage журнал попыток доставки напоминаний в SQLite.
type Storage struct {
	db *sql.DB
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = "data/deliveries.db"
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite не любит параллельных писателей
	db.SetMaxOpenConns(1)

	storage := &Storage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logrus.WithField("db_path", dbPath).Info("delivery log initialized")
	return storage, nil
}

func (s *Storage) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reminder_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			task_ref TEXT DEFAULT '',
			message TEXT DEFAULT '',
			scheduled_at DATETIME NOT NULL,
			attempted_at DATETIME NOT NULL,
			status TEXT NOT NULL,
			error TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_attempted_at ON deliveries(attempted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_channel ON deliveries(channel)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("migrate delivery log: %w", err)
		}
	}
	return nil
}

// Record сохраняет результат попытки доставки. Времена храним в UTC, чтобы сравнение строк в SQLite было корректным.
func (s *Storage) Record(ctx context.Context, d reminder.Delivery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries(reminder_id,channel,task_ref,message,scheduled_at,attempted_at,status,error)
		VALUES(?,?,?,?,?,?,?,?)`,
		d.ReminderID, d.Channel, d.TaskRef, d.Message,
		d.ScheduledAt.UTC(), d.AttemptedAt.UTC(), string(d.Status), d.Error)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent возвращает последние limit записей, новые первыми.
func (s *Storage) Recent(ctx context.Context, limit int) ([]reminder.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id,reminder_id,channel,task_ref,message,scheduled_at,attempted_at,status,error
		FROM deliveries
		ORDER BY attempted_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []reminder.Delivery
	for rows.Next() {
		var d reminder.Delivery
		var status string
		if err := rows.Scan(&d.ID, &d.ReminderID, &d.Channel, &d.TaskRef, &d.Message,
			&d.ScheduledAt, &d.AttemptedAt, &status, &d.Error); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Status = reminder.DeliveryStatus(status)
		out = append(out, d)
	}
	return out, rows.Err()
}

// PruneBefore удаляет записи старше t.
func (s *Storage) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM deliveries WHERE attempted_at < ?", t.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return res.RowsAffected()
}

// StartPruner в фоне раз в every удаляет записи старше retention, до завершения контекста.
func (s *Storage) StartPruner(ctx context.Context, retention, every time.Duration) {
	if retention <= 0 {
		return
	}
	if every <= 0 {
		every = time.Hour
	}
	tick := time.NewTicker(every)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				n, err := s.PruneBefore(ctx, time.Now().Add(-retention))
				if err != nil {
					logrus.WithError(err).Warn("delivery log prune failed")
					continue
				}
				if n > 0 {
					logrus.WithField("deleted", n).Info("delivery log pruned")
				}
			}
		}
	}()
}

func (s *Storage) Close() error {
	return s.db.Close()
}
