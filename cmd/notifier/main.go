package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azamatb/parcelhub/internal/config"
	"github.com/azamatb/parcelhub/internal/log"
	"github.com/azamatb/parcelhub/internal/metrics"
	"github.com/azamatb/parcelhub/internal/notify"
	"github.com/azamatb/parcelhub/internal/queue"
	"github.com/azamatb/parcelhub/internal/repo"
)

func main() {
	cfg := config.Load()

	if _, err := log.Init(os.Getenv("APP_ENV") == "production"); err != nil {
		panic(err)
	}
	defer log.Sync()

	metrics.MustRegister()

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(initCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.S().Fatalw("mongo connect", "error", err)
	}
	defer store.Close(context.Background())

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, cfg.RabbitBindKey)
	if err != nil {
		log.S().Fatalw("rabbit consumer init", "error", err)
	}
	defer cons.Close()

	n := notify.New(store, notify.LogSender{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.S().Infow("notifier up",
		"exchange", cfg.RabbitExchange, "queue", cfg.RabbitQueue,
		"key", cfg.RabbitBindKey, "workers", cfg.RabbitConcurrency)

	if err := cons.Consume(ctx, cfg.RabbitConcurrency, n.HandleDue); err != nil {
		log.S().Fatalw("consumer stopped", "error", err)
	}
}
