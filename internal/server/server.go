package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/prepagent/config"
	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/notify"
	"github.com/mohammad-safakhou/prepagent/internal/research"
	"github.com/mohammad-safakhou/prepagent/internal/runtime"
	"github.com/mohammad-safakhou/prepagent/internal/store"
	"github.com/mohammad-safakhou/prepagent/internal/worker"
)

func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	registerAgentCard(e)

	_ = Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0)

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Storage.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	tasks := store.New(db)

	var rdb *redis.Client
	var conv conversation.Store
	switch cfg.Conversation.Backend {
	case "redis":
		rdb = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		conv = conversation.NewRedisStore(rdb, cfg.Conversation.TTL)
	default:
		conv = conversation.NewMemoryStore(cfg.Conversation.TTL)
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	searchKey := cfg.Research.SerperAPIKey
	if cfg.Research.Provider == "brave" {
		searchKey = cfg.Research.BraveAPIKey
	}
	searcher, err := research.NewSearcher(research.Provider(cfg.Research.Provider), searchKey)
	if err != nil {
		return err
	}
	researcher := research.NewManager(searcher, cfg.Research.MaxResults, log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags))

	notifier := notify.NewNotifier(cfg.Webhook, log.New(log.Writer(), "[WEBHOOK] ", log.LstdFlags))
	wrk := worker.New(tasks, conv, researcher, notifier, cfg.Webhook, log.New(log.Writer(), "[WORKER] ", log.LstdFlags))
	controller := conversation.NewController(log.New(log.Writer(), "[CONV] ", log.LstdFlags))

	api := e.Group("/api")
	api.Use(runtime.EchoAuthMiddleware(secret))

	mh := &MessagesHandler{
		Conv:       conv,
		Controller: controller,
		Tasks:      tasks,
		Worker:     wrk,
		Research:   researcher,
		Logger:     log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
	}
	mh.Register(api)

	th := &TasksHandler{Tasks: tasks, Conv: conv}
	th.Register(api)

	sweeper := &Sweeper{Conv: conv, Rdb: rdb, Cron: cfg.Conversation.SweepCron, Stop: make(chan struct{})}
	sweeper.Start()

	addr := cfg.Server.Listen
	if addr == "" {
		addr = ":10001"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
