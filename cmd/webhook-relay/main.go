package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sglre6355/webhook-relay/internal/domain"
	"github.com/sglre6355/webhook-relay/internal/infrastructure"
	"github.com/sglre6355/webhook-relay/internal/presentation"
	"github.com/sglre6355/webhook-relay/internal/usecase"
)

type config struct {
	ListenAddress    string        `env:"LISTEN_ADDRESS"     envDefault:":8080"`
	LogLevel         slog.Level    `env:"LOG_LEVEL"          envDefault:"INFO"`
	LogFormat        string        `env:"LOG_FORMAT"         envDefault:"text"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT"    envDefault:"15s"`
	SendDelay        time.Duration `env:"SEND_DELAY"         envDefault:"100ms"`
	SpamMinInterval  time.Duration `env:"SPAM_MIN_INTERVAL"  envDefault:"50ms"`
	SpamMaxInFlight  int           `env:"SPAM_MAX_IN_FLIGHT" envDefault:"0"`
	SpamIdleTimeout  time.Duration `env:"SPAM_IDLE_TIMEOUT"  envDefault:"1m"`
	NotifyWebhookURL string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyOnSend     bool          `env:"NOTIFY_ON_SEND"     envDefault:"false"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT"   envDefault:"10s"`
}

func newLogger(cfg config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// routeDiscordLogs sends discordgo's package logging through logger.
func routeDiscordLogs(logger *slog.Logger) {
	levels := map[int]slog.Level{
		discordgo.LogError:         slog.LevelError,
		discordgo.LogWarning:       slog.LevelWarn,
		discordgo.LogInformational: slog.LevelInfo,
		discordgo.LogDebug:         slog.LevelDebug,
	}

	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		level, ok := levels[msgL]
		if !ok {
			level = slog.LevelDebug
		}
		logger.Log(context.Background(), level, fmt.Sprintf(format, a...), slog.String("component", "discordgo"))
	}
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env file", slog.Any("error", err))
		return 1
	}

	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to parse environment variables", slog.Any("error", err))
		return 1
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	routeDiscordLogs(logger)

	session, err := infrastructure.NewDiscordSession(cfg.RequestTimeout)
	if err != nil {
		slog.Error("failed to create Discord session", slog.Any("error", err))
		return 1
	}

	webhookClient := infrastructure.NewDiscordWebhookClient(session)

	usecaseOpts := []usecase.WebhookUsecaseOption{
		usecase.WithSendDelay(cfg.SendDelay),
		usecase.WithNotificationErrorHandler(func(ref domain.WebhookRef, err error) {
			slog.Warn(
				"failed to deliver webhook notification",
				slog.String("webhook", ref.ID),
				slog.Any("error", err),
			)
		}),
	}
	if cfg.NotifyWebhookURL != "" {
		notifier, err := infrastructure.NewWebhookNotifier(session, cfg.NotifyWebhookURL)
		if err != nil {
			slog.Error("failed to configure notification webhook", slog.Any("error", err))
			return 1
		}
		slog.Info(
			"webhook notifications enabled",
			slog.String("target", notifier.TargetID()),
			slog.Bool("notify_on_send", cfg.NotifyOnSend),
		)
		usecaseOpts = append(usecaseOpts,
			usecase.WithNotifier(notifier),
			usecase.WithNotifyOnSend(cfg.NotifyOnSend),
		)
	}

	webhookUsecase := usecase.NewWebhookUsecase(webhookClient, usecaseOpts...)

	spamManager := usecase.NewSpamManager(
		webhookClient,
		usecase.WithSpamMinInterval(cfg.SpamMinInterval),
		usecase.WithSpamMaxInFlight(cfg.SpamMaxInFlight),
		usecase.WithSpamDispatchTimeout(cfg.RequestTimeout),
		usecase.WithSpamIdleTimeout(cfg.SpamIdleTimeout),
		usecase.WithSpamErrorHandler(func(sessionID string, ref domain.WebhookRef, err error) {
			slog.Debug(
				"spam dispatch failed",
				slog.String("session", sessionID),
				slog.String("webhook", ref.ID),
				slog.Any("error", err),
			)
		}),
	)

	server, err := presentation.NewServer(webhookUsecase, spamManager, logger)
	if err != nil {
		slog.Error("failed to create HTTP server", slog.Any("error", err))
		return 1
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(cfg.ListenAddress)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-stop:
		slog.Info("Termination signal received, shutting down...")
	case err := <-serveErr:
		if err != nil {
			slog.Error("HTTP server stopped unexpectedly", slog.Any("error", err))
			exitCode = 1
		}
	}

	if n := spamManager.Shutdown(); n > 0 {
		slog.Info("cancelled running spam sessions", slog.Int("count", n))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down HTTP server", slog.Any("error", err))
		return 1
	}

	slog.Info("Webhook relay successfully terminated")
	return exitCode
}

func main() {
	os.Exit(run())
}
