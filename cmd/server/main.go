package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/azamatb/parcelhub/internal/config"
	api "github.com/azamatb/parcelhub/internal/http"
	"github.com/azamatb/parcelhub/internal/log"
	"github.com/azamatb/parcelhub/internal/metrics"
	"github.com/azamatb/parcelhub/internal/oauth"
	"github.com/azamatb/parcelhub/internal/queue"
	"github.com/azamatb/parcelhub/internal/repo"
)

func main() {
	cfg := config.Load()

	if _, err := log.Init(os.Getenv("APP_ENV") == "production"); err != nil {
		panic(err)
	}
	defer log.Sync()

	if os.Getenv("DD_ENABLED") == "true" {
		tracer.Start(tracer.WithService("parcelhub"))
		defer tracer.Stop()
	}

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.S().Fatalw("mongo connect", "error", err)
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		log.S().Fatalw("ensure indexes", "error", err)
	}

	var rds *repo.Redis
	if rc := repo.NewRedis(cfg.RedisAddr); rc.Ping(ctx) == nil {
		rds = rc
		defer rds.Close()
	} else {
		_ = rc.Close()
		log.S().Warnw("redis unavailable, rate limiting disabled", "addr", cfg.RedisAddr)
	}

	pub, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		log.S().Fatalw("rabbit connect", "error", err)
	}
	defer pub.Close()

	providers, err := oauth.BuildProviders(cfg)
	if err != nil {
		log.S().Fatalw("oauth providers", "error", err)
	}
	for _, p := range providers {
		log.S().Infow("oauth provider enabled", "provider", p.Name)
	}

	sched := queue.NewScheduler(pub)
	h := api.NewHandler(store, cfg, rds, pub, sched, providers)
	r := api.NewRouter(h)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	log.S().Infow("parcelhub api listening", "port", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.S().Infow("shutting down", "signal", s.String())
	case err := <-srvErr:
		log.S().Errorw("server error", "error", err)
	}
}
