package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/config"
	"telegram-medication-report/internal/handlers"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/medication"
	"telegram-medication-report/internal/registry"
	"telegram-medication-report/internal/scheduler"
	"telegram-medication-report/internal/server"
	"telegram-medication-report/internal/storage"
	"telegram-medication-report/internal/tracker"
	"telegram-medication-report/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load() // TELEGRAM_BOT_TOKEN etc.

	cfg := utils.MustValue(config.Load())
	log := logger.Get(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer func() { _ = log.Sync() }()

	reg, err := registry.Load(cfg.InstancesFile)
	if err != nil {
		log.Fatalw("failed to load instances", "file", cfg.InstancesFile, "err", err)
	}

	legacyKey := cfg.LegacyInstanceKey
	if legacyKey == "" {
		legacyKey = reg.Keys()[0]
	}
	store, closer, err := openStore(cfg, legacyKey)
	if err != nil {
		log.Fatalw("failed to open store", "driver", cfg.StoreDriver, "err", err)
	}
	defer func() { _ = closer.Close() }()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalw("failed to authorize bot", "err", err)
	}
	log.Infow("authorized", "bot", bot.Self.UserName, "instances", reg.Keys(), "store", cfg.StoreDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	client := chat.NewTelegram(bot)
	tr := tracker.New(store, clock, log)
	svc := medication.New(reg, tr, client, log)
	prompts := handlers.NewPrompts(client, clock, cfg.MoodPromptTimeout, log)
	h := handlers.New(svc, client, prompts, cfg.CommandPrefix, log)

	sched, err := scheduler.New(svc, reg, clock, cfg.StartupResetDelay, log)
	if err != nil {
		log.Fatalw("failed to create scheduler", "err", err)
	}
	if err := sched.Register(ctx); err != nil {
		log.Fatalw("failed to register jobs", "err", err)
	}
	sched.Start(ctx)

	var srv *server.Server
	if cfg.HTTPAddr != "" {
		srv = server.New(cfg.HTTPAddr, server.Routes(reg, tr), log)
		srv.Run()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := bot.GetUpdatesChan(u)
	go h.Listen(ctx, updates)

	waitForShutdown(cancel, log)

	bot.StopReceivingUpdates()
	if err := sched.Shutdown(); err != nil {
		log.Errorw("scheduler shutdown", "err", err)
	}
	if srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Errorw("status server forced to shutdown", "err", err)
		}
	}
}

// openStore builds the configured state store; the closer releases its connection.
func openStore(cfg config.Config, legacyKey string) (storage.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := storage.OpenSQLite(cfg.SQLitePath, legacyKey)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
		}
		return storage.NewRedisStore(rdb, cfg.RedisKey, legacyKey), rdb, nil
	default:
		return storage.NewFileStore(cfg.DataFile, legacyKey), closerFunc(func() error { return nil }), nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// waitForShutdown blocks until SIGINT/SIGTERM, then cancels background work.
func waitForShutdown(cancel context.CancelFunc, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")
	cancel()
}
