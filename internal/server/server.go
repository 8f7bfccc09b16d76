package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"example.com/slackpoints-bot/internal/reminder"
	"example.com/slackpoints-bot/internal/slackbot"
	"example.com/slackpoints-bot/internal/tasks"
)

// SlackPoster то, что серверу нужно от Slack клиента.
type SlackPoster interface {
	PostForm(ctx context.Context, channelID string, options []slackbot.TaskOption) error
	PostEphemeral(ctx context.Context, channelID, userID string, blocks ...slack.Block) error
}

// DeliveryLister журнал доставок.
type DeliveryLister interface {
	Recent(ctx context.Context, limit int) ([]reminder.Delivery, error)
}

// Deps зависимости HTTP слоя. Slack, Tasks и Deliveries могут быть nil:
// без Slack маршруты /reminder и /slack/interactive-endpoint не регистрируются.
type Deps struct {
	Store      *reminder.Store
	Slack      SlackPoster
	Tasks      tasks.Source
	Deliveries DeliveryLister
	Location   *time.Location
}

type Server struct {
	deps   Deps
	engine *gin.Engine
	http   *http.Server
}

func New(addr string, deps Deps) *Server {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	s := &Server{deps: deps}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	s.routes(engine)

	s.engine = engine
	s.http = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello World")
	})
	r.GET("/healthz", s.health)
	r.GET("/reminders/deliveries", s.listDeliveries)

	if s.deps.Slack == nil {
		return
	}
	r.POST("/reminder", s.reminderCommand)
	r.POST("/slack/interactive-endpoint", s.interactive)
}

// Handler для тестов и встраивания.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run слушает addr до отмены контекста, затем мягко останавливается.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.http.Addr).Info("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logrus.Info("http server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "pending": s.deps.Store.Len()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Warn("request failed")
			return
		}
		entry.Debug("request handled")
	}
}
