package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"woocart-bridge/internal/config"
	"woocart-bridge/internal/db"
	"woocart-bridge/internal/events"
	"woocart-bridge/internal/httpserver"
	catalogrepo "woocart-bridge/internal/repository/catalog"
	credentialrepo "woocart-bridge/internal/repository/credential"
	optionrepo "woocart-bridge/internal/repository/option"
	sessionrepo "woocart-bridge/internal/repository/session"
	"woocart-bridge/internal/service/auth"
	cartsvc "woocart-bridge/internal/service/cart"
	catalogsvc "woocart-bridge/internal/service/catalog"
	"woocart-bridge/internal/service/session"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	tables := db.NewTables(cfg.TablePrefix)
	sessions := session.NewGateway(sessionrepo.NewPostgres(dbpool, tables), logger)
	catalog := catalogsvc.NewEnricher(catalogrepo.NewPostgres(dbpool, tables, logger), cfg.UploadsURL, cfg.CatalogConcurrency, logger)
	verifier := auth.NewVerifier(credentialrepo.NewPostgres(dbpool, tables, logger), cfg.KeyHash, logger)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaCartTopic)
		logger.Printf("publishing cart events to %s", cfg.KafkaCartTopic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Printf("close publisher: %v", err)
		}
	}()

	cartService := cartsvc.New(sessions, catalog, optionrepo.NewPostgres(dbpool, tables), publisher, cfg.DefaultCurrency, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CartSvc:  cartService,
		Verifier: verifier,
		Catalog:  catalog,
	}, httpserver.Options{
		APIPrefix:           cfg.APIPrefix,
		SessionCookiePrefix: cfg.SessionCookiePrefix,
		CheckoutPath:        cfg.CheckoutPath,
		CheckoutURL:         cfg.CheckoutURL(),
		ExternalCheckoutURL: cfg.ExternalCheckoutURL,
		DefaultCountry:      cfg.DefaultCountry,
		CartNotFoundStatus:  cfg.CartNotFoundStatus,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
