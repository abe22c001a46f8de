package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avolkov/online-store/internal/cart"
	"github.com/avolkov/online-store/internal/checkout"
	"github.com/avolkov/online-store/internal/config"
	"github.com/avolkov/online-store/internal/es"
	"github.com/avolkov/online-store/internal/handlers"
	"github.com/avolkov/online-store/internal/logging"
	"github.com/avolkov/online-store/internal/middleware/loggingmw"
	"github.com/avolkov/online-store/internal/mykafka"
	"github.com/avolkov/online-store/internal/orders"
	"github.com/avolkov/online-store/internal/reaper"
	"github.com/avolkov/online-store/internal/redisx"
	httpserver "github.com/avolkov/online-store/internal/transport/http"
	"github.com/avolkov/online-store/internal/wishlist"
)

const productIndex = "products"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(rootCtx, configuration)
	if err != nil {
		log.Fatalf("db init: %v", err)
	}

	brokers := []string{configuration.KAFKA_ADDRESS}
	producer := mykafka.NewProducer(brokers)

	rdb, err := redisx.New(rootCtx, configuration.REDIS_ADDR)
	if err != nil {
		log.Fatalf("redis init: %v", err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatalf("elasticsearch init: %v", err)
	}

	cartSvc := &cart.Service{DB: db, Events: producer}
	ordersSvc := &orders.Service{DB: db, Events: producer}
	wishlistSvc := &wishlist.Service{DB: db}
	finalizer := &checkout.Finalizer{DB: db, Redis: rdb, Events: producer}

	sweeper := &reaper.Reaper{
		DB:       db,
		Log:      logger.With("component", "reaper"),
		Events:   producer,
		Interval: reaper.DefaultInterval,
	}
	go sweeper.Run(rootCtx)

	paymentConsumer := mykafka.NewConsumer(brokers, "checkout", "payment_events",
		logger.With("component", "payment_consumer"))
	go func() {
		if err := paymentConsumer.Start(logging.IntoContext(rootCtx, logger), finalizer.Handle); err != nil {
			logger.Error("payment consumer stopped", "error", err)
		}
	}()

	syncer := &es.Syncer{DB: db, ES: esClient, Index: productIndex, Log: logger.With("component", "es_syncer")}
	productConsumer := mykafka.NewConsumer(brokers, "es-sync", "product_events",
		logger.With("component", "product_consumer"))
	go func() {
		if err := productConsumer.Start(rootCtx, syncer.Handle); err != nil {
			logger.Error("product consumer stopped", "error", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		CartHandler:     &handlers.CartHandler{Svc: cartSvc},
		CheckoutHandler: &handlers.CheckoutHandler{Finalizer: finalizer},
		OrdersHandler:   &handlers.OrdersHandler{Svc: ordersSvc},
		WishlistHandler: &handlers.WishlistHandler{Svc: wishlistSvc},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: productIndex},
		JWTSecret:       []byte(configuration.JWT_SECRET),
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("server started", "addr", configuration.HTTP_ADDR)
	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
