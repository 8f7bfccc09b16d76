package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"example.com/slackpoints-bot/internal/config"
	"example.com/slackpoints-bot/internal/deliverylog"
	"example.com/slackpoints-bot/internal/reminder"
	"example.com/slackpoints-bot/internal/server"
	"example.com/slackpoints-bot/internal/slackbot"
	"example.com/slackpoints-bot/internal/tasks"
	"example.com/slackpoints-bot/internal/telegram"
)

func main() {
	// Загружаем .env в самом начале
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config load error: %v", err)
	}

	switch cfg.LogLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	gin.SetMode(gin.ReleaseMode)

	logrus.WithFields(logrus.Fields{
		"log_level":        cfg.LogLevel,
		"slack":            cfg.SlackEnabled(),
		"telegram":         cfg.TelegramEnabled(),
		"http_addr":        cfg.HTTPAddr,
		"poll_interval":    cfg.PollInterval,
		"delivery_timeout": cfg.DeliveryTimeout,
		"timezone":         cfg.Location.String(),
	}).Info("config loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Обработка сигналов для graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-signals
		logrus.Info("shutdown signal received")
		cancel()
	}()

	store := reminder.NewStore()

	deliveries, err := deliverylog.NewStorage(cfg.DeliveryLogPath)
	if err != nil {
		logrus.Fatalf("delivery log init error: %v", err)
	}
	defer deliveries.Close()
	deliveries.StartPruner(ctx, cfg.DeliveryLogRetention, time.Hour)

	var slackClient *slackbot.Client
	if cfg.SlackEnabled() {
		slackClient = slackbot.New(cfg.SlackBotToken, cfg.SlackAPIURL)
	}

	var router *reminder.Router
	if slackClient != nil {
		router = reminder.NewRouter(slackClient)
	} else {
		router = reminder.NewRouter(nil)
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logrus.WithError(err).WithField("component", name).Error("component stopped with error")
				cancel()
			}
		}()
	}

	if cfg.TelegramEnabled() {
		api, err := telegram.Connect(cfg.TelegramBotToken, cfg.DeliveryTimeout)
		if err != nil {
			logrus.Fatalf("telegram bot init error: %v", err)
		}
		router.Handle(telegram.Scheme, telegram.NewNotifier(api))
		bot := telegram.NewBot(api, store, cfg.Location)
		run("telegram", bot.Start)
	}

	deps := server.Deps{
		Store:      store,
		Deliveries: deliveries,
		Location:   cfg.Location,
	}
	if slackClient != nil {
		deps.Slack = slackClient
		if cfg.TasksDatabasePath != "" {
			src, err := tasks.NewSQLiteSource(cfg.TasksDatabasePath)
			if err != nil {
				logrus.Fatalf("tasks database init error: %v", err)
			}
			defer src.Close()
			deps.Tasks = src
		}
	}
	// health и журнал доставок доступны и без Slack
	srv := server.New(cfg.HTTPAddr, deps)
	run("http", srv.Run)

	scheduler := reminder.NewScheduler(store, router)
	scheduler.Interval = cfg.PollInterval
	scheduler.Timeout = cfg.DeliveryTimeout
	scheduler.Recorder = deliveries
	run("scheduler", scheduler.Run)

	<-ctx.Done()
	wg.Wait()
	logrus.Info("bot stopped")
}
