package lendformd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"corefi/observability/logging"
	telemetry "corefi/observability/otel"
	"corefi/services/lendform"
	"corefi/services/lendform/evm"
	"corefi/services/lendform/server"
)

// Main initialises and runs the lend form daemon.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/lendformd/config.yaml", "path to lendformd configuration")
	flag.Parse()

	cfg, err := lendform.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv("LENDFORM_ENV"))
	logger := logging.Setup("lendformd", env, logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.ConfigFromEnv("lendformd", env))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	stack, err := evm.Build(dialCtx, cfg, evm.EnvPassphrase(cfg.Wallet.PassphraseEnv))
	cancel()
	if err != nil {
		return fmt.Errorf("build evm stack: %w", err)
	}
	defer stack.Close()

	logger.Info("lendformd configured",
		slog.String("wallet", stack.Wallet.Account().Hex()),
		slog.String("token", cfg.EVM.TokenAddress().Hex()),
		slog.String("lending_contract", cfg.EVM.LendingAddress().Hex()),
		logging.MaskField("auth_secret", cfg.Auth.HMACSecret),
	)

	notifications := lendform.NewBroadcaster(32)
	orchestrator := lendform.NewOrchestrator(stack.Wallet, stack.Contract, stack.Confirmer, cfg.EVM.LendingAddress(),
		lendform.WithToken(cfg.Token.Symbol, cfg.Token.Precision()),
		lendform.WithTimeout(cfg.EVM.TxTimeout.Duration),
		lendform.WithLogger(logger),
		lendform.WithNotifier(lendform.MultiNotifier{notifications, lendform.LogNotifier{Logger: logger}}),
	)
	form := lendform.NewForm(orchestrator)

	handler, err := server.New(server.Config{
		Form:          form,
		Wallet:        stack.Wallet,
		Notifications: notifications,
		Auth: server.NewAuthenticator(server.AuthConfig{
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew.Duration,
		}, logger),
		Limiter: server.NewRateLimiter(server.RateLimit{
			RequestsPerMinute: cfg.RateLimit.SubmitPerMinute,
			Burst:             cfg.RateLimit.Burst,
		}),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.EVM.TxTimeout.Duration + 30*time.Second, // submit holds the request until lend is sent
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("lendformd listening", slog.String("addr", cfg.ListenAddress))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
