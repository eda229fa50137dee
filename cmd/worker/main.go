package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BartoooMuch/irline-ticketing-system/config"
	"github.com/BartoooMuch/irline-ticketing-system/internal/email"
	"github.com/BartoooMuch/irline-ticketing-system/internal/kafka"
	"github.com/BartoooMuch/irline-ticketing-system/internal/repository"
	"github.com/BartoooMuch/irline-ticketing-system/internal/service/settlement"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool, time.Duration(cfg.Database.LockTimeoutMS)*time.Millisecond)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	settlementService := settlement.NewSettlementService(store, store, producer,
		settlement.WithNotificationsTopic(cfg.Kafka.NotificationsTopic))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, emailSender.Send); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	settleTicker := time.NewTicker(time.Duration(cfg.Settlement.SweepMinutes) * time.Minute)
	defer settleTicker.Stop()
	notifyTicker := time.NewTicker(time.Duration(cfg.Settlement.NotifyRetryMinutes) * time.Minute)
	defer notifyTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-settleTicker.C:
			result, err := settlementService.SettleDepartedFlights(ctx)
			if err != nil {
				log.Printf("settlement sweep error: %v", err)
				continue
			}
			if result.FlightsSettled > 0 || result.FlightsFailed > 0 {
				log.Printf("settled %d flights (%d tickets, %d miles awarded, %d failed)",
					result.FlightsSettled, result.TicketsCredited, result.MilesAwarded, result.FlightsFailed)
			}
		case <-notifyTicker.C:
			sent, err := settlementService.RetryPendingNotifications(ctx, cfg.Settlement.NotifyBatchSize)
			if err != nil {
				log.Printf("notification retry error: %v", err)
				continue
			}
			if sent > 0 {
				log.Printf("re-sent %d pending notifications", sent)
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
