package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitweb/config"
	"habitweb/contracts/mq"
	"habitweb/internal/handler"
	"habitweb/internal/httpserver"
	"habitweb/internal/live"
	"habitweb/internal/repository"
	"habitweb/internal/repository/memory"
	"habitweb/internal/service/auth"
	"habitweb/internal/service/tracker"
	"habitweb/internal/userstore"
	"habitweb/internal/util"
	pkgconfig "habitweb/pkg/config"
	"habitweb/pkg/db"
	"habitweb/pkg/logger"
	pkgmq "habitweb/pkg/mq"
	"habitweb/pkg/ratelimit"
	pkgredis "habitweb/pkg/redis"
	"habitweb/pkg/rbac"
)

func main() {
	cfg, err := config.Load(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	log.Info("Starting habitweb...",
		zap.String("storage", cfg.Storage),
		zap.String("mount_path", cfg.RootPath()),
		zap.String("port", cfg.Server.Port),
	)

	// Storage
	var (
		users   auth.UserStore
		habits  tracker.HabitStore
		lists   tracker.ListStore
		records tracker.RecordStore
		txs     tracker.TxRunner
		probes  httpserver.Probes
	)
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		store := memory.New()
		users, habits, lists, records = store.Users(), store.Habits(), store.Lists(), store.Records()
		txs = store
	default:
		log.Info("Initializing database connection...")
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("Failed to init DB", zap.Error(err))
		}
		defer pool.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.EnsureSchema(ctx, pool, log)
		cancel()
		if err != nil {
			log.Fatal("Failed to apply schema", zap.Error(err))
		}
		log.Info("Database connection established successfully")

		users = repository.NewUserRepository(pool, log)
		habits = repository.NewHabitRepository(pool, log)
		lists = repository.NewListRepository(pool, log)
		records = repository.NewRecordRepository(pool, log)
		txs = repository.NewTxRunner(pool, log)
		probes.DB = pool
	}

	// Redis is optional: without it storage, limits and dedup stay in process.
	rdb := pkgredis.NewRedisClient(cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	hub := live.NewHub()
	trackerOpts := []tracker.Option{
		tracker.WithTickLimiter(ratelimit.New(rdb, "tick", cfg.RateLimit.Tick)),
		tracker.WithTxRunner(txs),
	}

	// MQ is optional: events are published and other instances' events
	// refresh local sessions.
	if cfg.MQ.URL != "" {
		instanceID := uuid.NewString()
		publisher, err := pkgmq.NewPublisher(cfg.MQ.URL, instanceID)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		trackerOpts = append(trackerOpts, tracker.WithPublisher(publisher))
		probes.MQ = publisher

		consumer, err := pkgmq.NewConsumer(cfg.MQ.URL, "", mq.RoutingHabitAll, log)
		if err != nil {
			log.Fatal("Failed to init MQ consumer", zap.Error(err))
		}
		defer consumer.Close()
		consumer.IgnoreAppID(instanceID)
		consumer.SetHandler(live.RemoteRefresher(hub, log))

		go func() {
			log.Info("Starting habit event consumer...")
			if err := consumer.StartConsuming(); err != nil {
				log.Error("Habit event consumer failed", zap.Error(err))
			}
		}()
	} else {
		log.Info("MQ url not set, habit events are not published")
	}

	defaultRole := rbac.RoleUser
	if cfg.UI.Demo {
		defaultRole = rbac.RoleDemo
	}
	authService := auth.NewService(users, cfg.JWT.Secret, cfg.TokenTTL(), defaultRole, util.NewDeduper(rdb, 5*time.Second), log)
	trackerService := tracker.NewService(habits, lists, records, log, trackerOpts...)
	storage := userstore.New(rdb, log)

	handlers := httpserver.Handlers{
		Auth:  handler.NewAuthHandler(authService, cfg.UI, log),
		Pages: handler.NewPageHandler(trackerService, storage, cfg.UI, log),
		Live:  handler.NewLiveHandler(trackerService, storage, hub, cfg.UI, log),
	}

	router, err := httpserver.NewRouter(handlers, authService, cfg.UI.MountPath, probes, log)
	if err != nil {
		log.Fatal("Failed to init router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
