package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Task незавершённая задача трекера, назначенная пользователю.
type Task struct {
	ID          int64
	Points      int
	Description string
	Deadline    string
}

// Label строка задачи в том же виде, в каком её показывают списки задач в Slack.
func (t Task) Label() string {
	return fmt.Sprintf("SP-%d (%d SlackPoints) %s [Deadline: %s]", t.ID, t.Points, t.Description, t.Deadline)
}

// Ref значение, которое попадает в напоминание как ссылка на задачу.
func (t Task) Ref() string {
	return strconv.FormatInt(t.ID, 10)
}

// Source отдаёт незавершённые задачи пользователя Slack.
type Source interface {
	PendingTasks(ctx context.Context, slackUserID string) ([]Task, error)
}

// SQLiteSource читает таблицы task/assignment/user трекера задач. Только чтение.
type SQLiteSource struct {
	db *sql.DB
}

func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open tasks database: %w", err)
	}
	logrus.WithField("db_path", dbPath).Info("tasks database opened")
	return &SQLiteSource{db: db}, nil
}

// PendingTasks задачи с progress = 0, назначенные пользователю, по возрастанию id.
func (s *SQLiteSource) PendingTasks(ctx context.Context, slackUserID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.task_id, COALESCE(t.points, 0), COALESCE(t.description, ''), COALESCE(t.deadline, '')
		FROM task t
		JOIN assignment a ON a.assignment_id = t.task_id
		JOIN "user" u ON u.user_id = a.user_id
		WHERE u.slack_user_id = ? AND a.progress = 0
		ORDER BY t.task_id`, slackUserID)
	if err != nil {
		return nil, fmt.Errorf("query pending tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Points, &t.Description, &t.Deadline); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
