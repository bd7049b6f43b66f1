package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/agrolink/tradepost/internal/catalog"
	"github.com/agrolink/tradepost/internal/config"
	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/events"
	"github.com/agrolink/tradepost/internal/httpx"
	"github.com/agrolink/tradepost/internal/identity"
	kafkax "github.com/agrolink/tradepost/internal/kafka"
	"github.com/agrolink/tradepost/internal/orders"
	"github.com/agrolink/tradepost/internal/postgres"
	"github.com/agrolink/tradepost/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	producers := map[string]*kafkax.Producer{}
	newProducer := func(topic string) *kafkax.Producer {
		p := kafkax.NewProducer(cfg.KafkaBrokers, topic, 1024)
		p.Start(ctx)
		producers[topic] = p
		return p
	}
	pubs := httpx.Publishers{
		OrderCreated:     newProducer(events.TopicOrderCreated),
		OrderAccepted:    newProducer(events.TopicOrderAccepted),
		OrderRejected:    newProducer(events.TopicOrderRejected),
		ContractCreated:  newProducer(events.TopicContractCreated),
		ContractSigned:   newProducer(events.TopicContractSigned),
		ContractRejected: newProducer(events.TopicContractRejected),
	}

	// Stores & services
	directory := &identity.PGDirectory{DB: db}
	contractStore := &contracts.PGStore{DB: db}
	contractSvc := contracts.NewService(contractStore, directory)
	orderStore := &orders.PGStore{DB: db}
	orderSvc := orders.NewService(orderStore, &catalog.PGCatalog{DB: db}, directory)

	// Router & handlers
	validate := validatorv10.New()
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Svc:      orderSvc,
		Validate: validate,
		Pub:      pubs,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}
	ch := &httpx.ContractsHandler{
		Svc:      contractSvc,
		Validate: validate,
		Pub:      pubs,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}
	router.Group(func(g chi.Router) {
		g.Use(httpx.WithCaller)
		oh.Register(g)
		ch.Register(g)
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // close inbox -> flush & close writer
	}
	cancel() // stop producer loops
	for _, p := range producers {
		p.WaitClosed()
	}
}
