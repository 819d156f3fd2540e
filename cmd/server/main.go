package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/config"
	"github.com/easybuy/backend/internal/es"
	"github.com/easybuy/backend/internal/handlers"
	"github.com/easybuy/backend/internal/logging"
	"github.com/easybuy/backend/internal/mailer"
	authmw "github.com/easybuy/backend/internal/middleware/auth"
	"github.com/easybuy/backend/internal/mykafka"
	"github.com/easybuy/backend/internal/payment"
	"github.com/easybuy/backend/internal/service/search"
	"github.com/easybuy/backend/internal/service/token"
	"github.com/easybuy/backend/internal/storage"
	httpserver "github.com/easybuy/backend/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.NewS3(context.Background(), configuration)
	if err != nil {
		log.Fatal(err)
	}

	tokens := &token.Service{JWTSecret: []byte(configuration.JWT_SECRET)}
	gateway := payment.NewStripeGateway(
		configuration.STRIPE_SECRET,
		configuration.STRIPE_WEBHOOK,
		configuration.FRONTEND_URL,
	)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.Middleware(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{configuration.FRONTEND_URL},
		AllowCredentials: true,
	}))

	deps := httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{
			DB:          db,
			Tokens:      tokens,
			Storage:     store,
			Mailer:      mailer.NewSMTP(configuration),
			Producer:    prod,
			FrontendURL: configuration.FRONTEND_URL,
		},
		ProductHandler: &handlers.ProductHandler{
			DB:       db,
			Storage:  store,
			Search:   search.New(esClient, "products"),
			Producer: prod,
		},
		CategoryHandler: &handlers.CategoryHandler{DB: db},
		FeaturedHandler: &handlers.FeaturedHandler{DB: db},
		PaymentHandler: &handlers.PaymentHandler{
			DB:       db,
			Gateway:  gateway,
			Producer: prod,
		},
		Auth: &authmw.Middleware{DB: db, Tokens: tokens},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
