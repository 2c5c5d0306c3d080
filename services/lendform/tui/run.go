package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"corefi/observability/logging"
	telemetry "corefi/observability/otel"
	"corefi/services/lendform"
	"corefi/services/lendform/evm"
)

// Main runs the terminal lend form, or a single non-interactive submission
// when --amount is given.
func Main(args []string) error {
	flags := pflag.NewFlagSet("lendform", pflag.ContinueOnError)
	cfgPath := flags.StringP("config", "c", "services/lendformd/config.yaml", "path to configuration")
	amount := flags.StringP("amount", "a", "", "lend this amount without the interactive form")
	logFile := flags.String("log-file", "", "append structured logs to this file")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := lendform.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	interactive := strings.TrimSpace(*amount) == ""

	env := strings.TrimSpace(os.Getenv("LENDFORM_ENV"))
	logOpts := logging.Options{File: cfg.Log.File, MaxSizeMB: cfg.Log.MaxSizeMB, MaxBackups: cfg.Log.MaxBackups}
	if *logFile != "" {
		logOpts.File = *logFile
	}
	if interactive {
		logOpts.Output = io.Discard
	} else {
		logOpts.Output = os.Stderr
	}
	logger := logging.Setup("lendform", env, logOpts)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.ConfigFromEnv("lendform", env))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	passphrase := evm.TerminalPassphrase("Keystore passphrase: ", os.Stderr)
	if cfg.Wallet.PassphraseEnv != "" {
		if _, ok := os.LookupEnv(cfg.Wallet.PassphraseEnv); ok {
			passphrase = evm.EnvPassphrase(cfg.Wallet.PassphraseEnv)
		}
	}
	stack, err := evm.Build(dialCtx, cfg, passphrase)
	cancel()
	if err != nil {
		return fmt.Errorf("build evm stack: %w", err)
	}
	defer stack.Close()

	notifications := lendform.NewBroadcaster(8)
	toasts, unsubscribe := notifications.Subscribe()
	defer unsubscribe()

	opts := []lendform.Option{
		lendform.WithToken(cfg.Token.Symbol, cfg.Token.Precision()),
		lendform.WithTimeout(cfg.EVM.TxTimeout.Duration),
		lendform.WithLogger(logger),
		lendform.WithNotifier(notifications),
	}

	if !interactive {
		return submitOnce(ctx, stack, cfg, opts, *amount, toasts)
	}

	wallet := NewPromptWallet(stack.Wallet)
	orchestrator := lendform.NewOrchestrator(wallet, stack.Contract, stack.Confirmer, cfg.EVM.LendingAddress(), opts...)
	form := lendform.NewForm(orchestrator)
	program := tea.NewProgram(New(ctx, form, wallet, toasts), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func submitOnce(ctx context.Context, stack *evm.Stack, cfg lendform.Config, opts []lendform.Option, amount string, toasts <-chan lendform.Toast) error {
	if err := stack.Wallet.Open(ctx); err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}
	orchestrator := lendform.NewOrchestrator(stack.Wallet, stack.Contract, stack.Confirmer, cfg.EVM.LendingAddress(), opts...)
	form := lendform.NewForm(orchestrator)
	form.SetAmount(amount)

	fmt.Fprintln(os.Stderr, "Please wait. The transaction may take 5-7 seconds to complete.")
	_, err := form.Submit(ctx)
	select {
	case toast := <-toasts:
		fmt.Printf("%s %s\n", toast.Title, toast.Description)
	default:
	}
	if lendform.KindOf(err) == lendform.KindValidation {
		fmt.Println(form.FieldError())
	}
	return err
}
