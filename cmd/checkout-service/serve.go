package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/travel-checkout/internal/checkout"
	"github.com/vasiliy-maslov/travel-checkout/internal/config"
	"github.com/vasiliy-maslov/travel-checkout/internal/db"
	checkoutHttp "github.com/vasiliy-maslov/travel-checkout/internal/handler/http"
	"github.com/vasiliy-maslov/travel-checkout/internal/invoice"
	"github.com/vasiliy-maslov/travel-checkout/internal/metrics"
	checkoutMiddleware "github.com/vasiliy-maslov/travel-checkout/internal/middleware"
	"github.com/vasiliy-maslov/travel-checkout/internal/payment"
	"github.com/vasiliy-maslov/travel-checkout/internal/reference"
)

func serveCmd(a *app) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve checkout and order pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			// A deployment that cannot sign payment forms must not start.
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			if migrateFirst && a.cfg.Provider.Kind == config.ProviderPostgres {
				if err := db.Migrate(a.cfg.Postgres); err != nil {
					return err
				}
			}

			return runServer(a.cfg)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply migrations before serving (postgres provider only)")

	return cmd
}

func newCodec(cfg config.ReferenceConfig) (*reference.Codec, error) {
	return reference.NewCodec(reference.Options{
		Alphabet:  cfg.Alphabet,
		MinLength: cfg.MinLength,
		Salt:      cfg.Salt,
	})
}

func checkoutSettings(cfg *config.Config) checkout.Settings {
	return checkout.Settings{
		Credentials: payment.Credentials{
			MerchantID:     cfg.Gateway.MerchantID,
			MerchantSecret: cfg.Gateway.MerchantSecret,
			Currency:       cfg.Gateway.Currency,
		},
		GatewayURL:  cfg.Gateway.URL,
		SiteBaseURL: cfg.Site.SiteBaseURL,
		APIBaseURL:  cfg.Site.APIBaseURL,
		NotifyPath:  cfg.Site.NotifyPath,
	}
}

func runServer(cfg *config.Config) error {
	log.Info().Msg("Checkout service starting...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	codec, err := newCodec(cfg.Reference)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	m := metrics.New()

	var (
		provider invoice.Provider
		pinger   checkoutHttp.Pinger
	)
	switch cfg.Provider.Kind {
	case config.ProviderPostgres:
		pg, err := db.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		provider = invoice.NewPostgresProvider(pg.Pool)
		pinger = pg.Pool
	default:
		provider = invoice.NewHTTPProvider(invoice.HTTPProviderConfig{
			BaseURL: cfg.Provider.BaseURL,
			Token:   cfg.Provider.Token,
			Timeout: cfg.Provider.Timeout,
		}, nil)
	}
	log.Info().Str("provider", cfg.Provider.Kind).Msg("Invoice provider configured")

	invoiceSvc := invoice.NewService(provider, m, invoice.WithFetchTimeout(cfg.Provider.Timeout))
	assembler := checkout.NewAssembler(codec, invoiceSvc, checkoutSettings(cfg), m)

	limiter := checkoutMiddleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst,
		checkoutMiddleware.WithOnReject(m.RateLimited))
	go limiter.Run(ctx, 5*time.Minute)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	checkoutHttp.NewCheckoutHandler(assembler, limiter.Handler).RegisterRoutes(router)
	checkoutHttp.NewHealthHandler(pinger, m.Handler()).RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Provider.Timeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down...")
	case err := <-serverErr:
		return fmt.Errorf("could not listen on %s: %w", cfg.App.Port, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("Checkout service stopped gracefully")
	return nil
}
