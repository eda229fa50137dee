package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BartoooMuch/irline-ticketing-system/api"
	"github.com/BartoooMuch/irline-ticketing-system/config"
	"github.com/BartoooMuch/irline-ticketing-system/internal/bootstrap"
	"github.com/BartoooMuch/irline-ticketing-system/internal/cache"
	"github.com/BartoooMuch/irline-ticketing-system/internal/identity"
	"github.com/BartoooMuch/irline-ticketing-system/internal/kafka"
	"github.com/BartoooMuch/irline-ticketing-system/internal/miles"
	"github.com/BartoooMuch/irline-ticketing-system/internal/pricing"
	"github.com/BartoooMuch/irline-ticketing-system/internal/repository"
	"github.com/BartoooMuch/irline-ticketing-system/internal/service/booking"
	"github.com/BartoooMuch/irline-ticketing-system/internal/service/flights"
	"github.com/BartoooMuch/irline-ticketing-system/internal/service/loyalty"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	store := repository.NewStore(pool, time.Duration(cfg.Database.LockTimeoutMS)*time.Millisecond)
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Cache.FlightsTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	rates := miles.Config{
		CashToMilesRate: cfg.Loyalty.CashToMilesRate,
		EarnRate:        cfg.Loyalty.EarnRate,
		TierThresholds:  cfg.Loyalty.TierThresholds,
	}
	oracle := pricing.NewClient(cfg.Oracle.URL, time.Duration(cfg.Oracle.TimeoutMS)*time.Millisecond)
	verifier := identity.NewVerifier(cfg.Auth.JWTSecret)

	bookingService := booking.NewBookingService(store, store, rates, producer,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic))
	flightService := flights.NewFlightService(store, store, redisCache, oracle)
	loyaltyService := loyalty.NewLoyaltyService(store, store, rates)

	router := api.NewRouter(
		verifier,
		store,
		api.NewBookingHandler(bookingService),
		api.NewFlightHandler(flightService),
		api.NewMemberHandler(loyaltyService),
		api.NewPartnerHandler(loyaltyService),
	)

	log.Printf("listening on %s", cfg.HTTP.Address)
	if err := bootstrap.Run(ctx, cfg, router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
