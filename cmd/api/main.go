package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-api.git/internal/audit"
	"github.com/ariefcatur/go-shop-api.git/internal/auth"
	"github.com/ariefcatur/go-shop-api.git/internal/config"
	"github.com/ariefcatur/go-shop-api.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-api.git/internal/kafka"
	"github.com/ariefcatur/go-shop-api.git/internal/orders"
	"github.com/ariefcatur/go-shop-api.git/internal/postgres"
	"github.com/ariefcatur/go-shop-api.git/internal/redisx"
	"github.com/ariefcatur/go-shop-api.git/internal/users"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.TokenSecret == "" {
		log.Fatal().Msg("TOKEN_SECRET is not set; refusing to start with no signing key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for order events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	prod.Start(ctx)

	// Activity trail (auth events are written here directly; order events
	// arrive via the audit consumer)
	trail, err := audit.NewFileLogger(cfg.ActivityLogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open activity log")
	}
	trail.Start(ctx)

	maker, err := auth.NewMaker(cfg.TokenSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("token maker")
	}

	// Handlers
	router := httpx.NewRouter()
	ah := &httpx.AuthHandler{
		Users:  &users.Repo{DB: db},
		Tokens: maker,
		Audit:  trail,
	}
	ah.Register(router)
	oh := &httpx.OrdersHandler{
		Orders:   &orders.Repo{DB: db},
		Producer: prod,
		Redis:    rdb,
		Tokens:   maker,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox -> flush & close writer
	trail.Close()
	cancel() // stop producer/logger loops
	prod.WaitClosed()
	trail.WaitClosed()
}
