package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"postbackbot/internal/delivery"
	"postbackbot/internal/infrastructure"
	"postbackbot/internal/usecase"
	"postbackbot/pkg/config"
	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting postback bot")

	if missing := cfg.Placeholders(); len(missing) > 0 {
		log.WithField("settings", missing).Warn("Settings still carry placeholder values")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	template, err := usecase.SelectTemplate(cfg.Messages.Variant, cfg.Messages.TemplatesFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load message templates")
	}

	bot, err := infrastructure.NewTelegramBot(
		cfg.Telegram.Token,
		cfg.Telegram.APIEndpoint,
		cfg.Outbound.Timeout,
		cfg.Telegram.PollTimeout,
		cfg.Outbound.RateLimitPerSecond,
		cfg.Outbound.RateLimitBurst,
		log,
		m,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to start Telegram bot")
	}

	reports := infrastructure.NewReportClient(
		cfg.Keitaro.ReportURL,
		cfg.Keitaro.APIKey,
		cfg.Outbound.Timeout,
		cfg.Outbound.RateLimitPerSecond,
		cfg.Outbound.RateLimitBurst,
		log,
		m,
	)

	renderer := usecase.NewRenderer(template)
	dispatcher := usecase.NewDispatcher(bot, cfg.Telegram.ChatID, cfg.Outbound.Timeout, log)

	postbacks := usecase.NewPostbackService(usecase.NewNormalizer(nil), renderer, dispatcher, log, m)
	stats := usecase.NewStatsService(reports, renderer, dispatcher, log, m, cfg.Outbound.Timeout, nil)

	handlers := delivery.NewHTTPHandlers(postbacks, cfg.Server.Banner, log)
	router := delivery.NewHTTPRouter(handlers, log, m, prometheus.DefaultGatherer, cfg.Server.RequestTimeout)
	commands := delivery.NewCommandRouter(stats, cfg.Telegram.AllowedChats, log)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.SetupRoutes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return commands.Run(ctx, bot)
	})

	g.Go(func() error {
		log.WithFields(map[string]any{
			"port":    cfg.Server.Port,
			"bot":     bot.Username(),
			"variant": template.Name,
		}).Info("HTTP server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("Server stopped with error")
	}
	log.Info("Server stopped")
}
