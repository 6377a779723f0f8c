package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"store-api/config"
	"store-api/internal/notify"
	"store-api/internal/repository"
	"store-api/pkg/database"
	"store-api/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.LoadNotifier(log)
	if len(cfg.Brokers) == 0 {
		log.Fatal("no kafka brokers configured (KAFKA_BROKERS)")
	}

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	sender, err := notify.NewEmailSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		SSL:      cfg.SMTP.SSL,
	})
	if err != nil {
		log.Fatal("Не удалось загрузить шаблоны писем", zap.Error(err))
	}

	cons := notify.NewOrderEventConsumer(cfg.Brokers, cfg.GroupID, cfg.Topic, repository.NewUserRepo(db), sender, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cons.Run(ctx); err != nil {
			log.Error("consumer stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("consumer did not stop in time")
	}
	if err := cons.Close(); err != nil {
		log.Warn("kafka reader close failed", zap.Error(err))
	}
}
