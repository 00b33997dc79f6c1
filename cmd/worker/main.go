package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shrimpsizemoose/trekker/logger"

	"schoolattend/internal/config"
	"schoolattend/internal/messages"
	"schoolattend/internal/notify"
	"schoolattend/internal/queue"
	"schoolattend/internal/store"
)

// Worker consumes absence messages, texts the parent and logs the outcome.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error.Fatalf("db connect failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if cfg.QueueBackend == "memory" {
		logger.Error.Println("QUEUE_BACKEND=memory is process-local; the worker will never receive messages from the api")
	}
	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	sms := notify.New(cfg.SMSGatewayURL, cfg.SMSSenderID, cfg.SMSSkip)
	if !cfg.SMSSkip {
		if err := sms.Health(ctx); err != nil {
			logger.Error.Printf("WARNING: SMS gateway not available: %v", err)
			logger.Info.Println("Failed sends will be recorded in the SMS log")
		} else {
			logger.Info.Println("SMS gateway connected")
		}
	}

	n := notify.NewNotifier(sms, messages.NewRepository(db))
	logger.Info.Println("worker started, waiting for messages...")
	if err := n.Run(ctx, q); err != nil {
		logger.Error.Fatalf("worker failed: %v", err)
	}
	logger.Info.Println("worker stopped")
}
