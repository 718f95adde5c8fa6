package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/nav"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/storefront"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)
	if err := cfg.Validate(); err != nil {
		log.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx := logging.IntoContext(context.Background(), log)

	sessions, err := session.Open(ctx, cfg.SessionDSN)
	if err != nil {
		log.Error("session_store_open_failed", "dsn", cfg.SessionDSN, "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.Noop{}
	var kafka *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka = events.NewKafkaPublisher(cfg.KafkaBrokers, log)
		publisher = kafka
	}

	var sf *storefront.Storefront
	var suggester catalog.Suggester
	if cfg.ESURL != "" {
		client, err := catalog.NewESClient(catalog.ESConfig{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			log.Error("es_client_failed", "error", err)
			os.Exit(1)
		}
		local := catalog.LocalSuggester{Names: func() []models.Product { return sf.State().Catalog.DistinctProducts }}
		suggester = catalog.NewESSuggester(client, cfg.ESIndex, local)
	}

	sf = storefront.New(storefront.Options{
		APIBaseURL:     cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Session:        sessions,
		Nav:            &nav.Recorder{},
		Events:         publisher,
		Suggester:      suggester,
		ItemsPerPage:   cfg.ItemsPerPage,
		Currency:       cfg.Currency,
		CountriesURL:   cfg.CountriesURL,
		MediaCacheSize: cfg.MediaCacheSize,
		RedirectDelay:  cfg.CheckoutRedirectDelay,
		Logger:         log,
	})
	if err := sf.Start(ctx); err != nil {
		log.Warn("storefront_start_incomplete", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(log))

	csrfCfg := csrf.DefaultConfig()
	httpserver.Register(e, &httpserver.Deps{
		Storefront:       sf,
		PaymentPublicKey: cfg.PaymentPublicKey,
		Currency:         cfg.Currency,
		CSRF:             &csrfCfg,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("http_server_started", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		log.Warn("force_exit")
		os.Exit(1)
	}()

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", "error", err)
	}
	sf.Close()
	if err := sessions.Close(); err != nil {
		log.Error("session_store_close_failed", "error", err)
	}
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			log.Error("kafka_close_failed", "error", err)
		}
	}
	log.Info("shutdown_complete")
}
