package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agrolink/tradepost/internal/config"
	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/events"
	"github.com/agrolink/tradepost/internal/fulfillment"
	"github.com/agrolink/tradepost/internal/identity"
	kafkax "github.com/agrolink/tradepost/internal/kafka"
	"github.com/agrolink/tradepost/internal/postgres"
	"github.com/agrolink/tradepost/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for contract.completed
	prod := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicContractCompleted, 1024)
	prod.Start(ctx)

	// Service
	store := &contracts.PGStore{DB: db}
	svc := &fulfillment.Service{
		Contracts:   contracts.NewService(store, &identity.PGDirectory{DB: db}),
		Redis:       rdb,
		Producer:    prod,
		ServiceName: cfg.ServiceName + "-fulfillment",
	}

	// Consumer
	group := getenv("FULFILLMENT_GROUP", "fulfillment-svc")
	workers := mustAtoi(os.Getenv("FULFILLMENT_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicContractFulfilled, workers)

	go func() {
		log.Printf("fulfillment consumer started: group=%s topic=%s workers=%d", group, events.TopicContractFulfilled, workers)
		if err := cons.Start(ctx, svc.HandleContractFulfilled); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
