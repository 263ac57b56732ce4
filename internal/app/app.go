package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/alarm"
	"github.com/deveshub/medminder/internal/config"
	"github.com/deveshub/medminder/internal/notify"
	"github.com/deveshub/medminder/internal/planner"
	"github.com/deveshub/medminder/internal/reminder"
	"github.com/deveshub/medminder/internal/service"
	"github.com/deveshub/medminder/internal/settings"
	"github.com/deveshub/medminder/internal/status"
	"github.com/deveshub/medminder/internal/store"
)

type App struct {
	cfg config.Config
	log *zap.Logger
	bot *tgbotapi.BotAPI

	repo     *store.SQLiteRepo
	timers   *alarm.Timers
	pipeline *status.Pipeline
	svc      *service.Service
	httpSrv  *http.Server
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	if cfg.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return nil, err
		}
		bot.Debug = false
		a.bot = bot
	}
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting medminder",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Bool("telegram", a.bot != nil),
		zap.Bool("exactAlarms", a.cfg.ExactAlarms),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	snooze, err := settings.New(ctx, repo, a.log)
	if err != nil {
		_ = repo.Close()
		return err
	}

	a.pipeline = status.New(repo.Jobs(), repo, a.log, status.Options{
		Poll:        a.cfg.StatusPoll,
		MinBackoff:  a.cfg.StatusBackoff,
		MaxAttempts: a.cfg.StatusMaxAttempts,
	})

	// The timer callback closes over the handler, which itself needs the
	// scheduler built on the timers; wire via a late-bound reference.
	var handler *reminder.Handler
	a.timers = alarm.NewTimers(func(p alarm.Payload) {
		handler.HandleFire(ctx, p)
	}, a.cfg.ExactAlarms, a.cfg.InexactSlack, a.log)
	alarms := alarm.NewScheduler(a.timers, a.log)

	var notifier reminder.Notifier
	var tgNotifier *notify.Telegram
	if a.bot != nil {
		tgNotifier = notify.NewTelegram(a.bot, a.cfg.ChatID, a.log)
		notifier = tgNotifier
	} else {
		notifier = notify.NewLog(a.log)
	}
	feedback := notify.NewFeedback(a.log)

	handler = reminder.NewHandler(repo, alarms, notifier, feedback, a.pipeline, snooze, a.log)
	a.svc = service.New(repo, alarms, a.log)
	plan := planner.New(repo, alarms, a.log, a.cfg.PlanInterval, a.cfg.PlanLookahead)

	a.httpSrv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      a.routes(snooze),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.pipeline.Run(ctx)
	go plan.Run(ctx)
	if tgNotifier != nil {
		router := notify.NewRouter(a.bot, tgNotifier, handler, a.log)
		go router.Run(ctx)
	}
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.httpSrv.Shutdown(shCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	cancel()

	a.timers.Stop()
	// One last drain so terminal actions taken moments before shutdown land.
	a.pipeline.Tick(context.Background())

	if err := a.repo.Close(); err != nil {
		a.log.Warn("sqlite close error", zap.Error(err))
	}
	return nil
}
