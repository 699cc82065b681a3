package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qrattend/internal/config"
	"qrattend/internal/notify"
	"qrattend/internal/queue"
	"qrattend/internal/store"
)

// The worker consumes guardian-notification messages and sends SMTP emails.
// It only makes sense against the redis queue; the in-memory backend is
// consumed inside the api process.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend != "redis" {
		log.Fatal("worker requires QUEUE_BACKEND=redis; in-memory notifications run inside the api process")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	q := queue.NewRedisQueue(redisClient.Client, "qrattend:notifications")

	mailer := notify.NewMailer(cfg)
	if mailer == nil {
		log.Println("WARNING: SMTP not configured, notifications will be logged and dropped")
	}

	log.Println("worker started, waiting for messages...")
	if err := notify.Run(ctx, q, mailer); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
