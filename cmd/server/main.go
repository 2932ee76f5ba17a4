package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/plantops/plantsentry/internal/actions"
	"github.com/plantops/plantsentry/internal/alerting"
	"github.com/plantops/plantsentry/internal/api"
	"github.com/plantops/plantsentry/internal/api/health"
	"github.com/plantops/plantsentry/internal/metrics"
	"github.com/plantops/plantsentry/internal/notifier"
	"github.com/plantops/plantsentry/internal/poller"
	"github.com/plantops/plantsentry/internal/registry"
)

// Build information, set via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	configFile string
	httpAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "plantsentry-server",
	Short: "PlantSentry - industrial alert monitoring and SMS dispatch",
	Long: `PlantSentry polls an industrial alert source, deduplicates and
rate-limits alerts, and dispatches SMS notifications with action links
to the on-call subscriber list.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plantsentry-server %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func runServer(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}

	// Gateway credentials come from the environment so they never land
	// in a config file on disk.
	accountSID := os.Getenv("PLANTSENTRY_SMS_SID")
	authToken := os.Getenv("PLANTSENTRY_SMS_TOKEN")
	if accountSID == "" || authToken == "" {
		return fmt.Errorf("PLANTSENTRY_SMS_SID and PLANTSENTRY_SMS_TOKEN environment variables are required")
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	metrics.SetBuildInfo(version, commit, buildTime)

	// Subscriber registry, seeded with admins on first run.
	reg, err := registry.New(cfg.Registry.File, cfg.Registry.Admins, logger)
	if err != nil {
		return fmt.Errorf("open subscriber registry: %w", err)
	}

	// Alert identity store and cooldown gate.
	store := alerting.NewIdentityStore()
	policy := alerting.DefaultPolicy()
	if cfg.Policy.File != "" {
		policy, err = alerting.LoadPolicyFromFile(cfg.Policy.File)
		if err != nil {
			return fmt.Errorf("load notification policy: %w", err)
		}
	}
	gate := alerting.NewGate(store, policy)

	// SMS transport and link shortener.
	transport, err := notifier.NewSMSTransport(notifier.SMSConfig{
		APIURL:     cfg.Transport.APIURL,
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       cfg.Transport.From,
	})
	if err != nil {
		return fmt.Errorf("create sms transport: %w", err)
	}

	var shortener notifier.Shortener
	if cfg.Shortener.URL != "" {
		shortener, err = notifier.NewHTTPShortener(cfg.Shortener.URL, cfg.Shortener.RequestTimeout)
		if err != nil {
			return fmt.Errorf("create link shortener: %w", err)
		}
	}

	dispatcher := notifier.NewDispatcher(transport, shortener, reg, notifier.DispatcherConfig{
		ActionLinkBase: cfg.Notify.ActionLinkBase,
		MaxPerMinute:   cfg.Notify.MaxPerMinute,
	}, logger)
	defer dispatcher.Close()

	tracker := actions.NewTracker(store, logger)

	source, err := poller.NewHTTPSource(cfg.Source.URL, cfg.Source.RequestTimeout, logger)
	if err != nil {
		return fmt.Errorf("create alert source: %w", err)
	}

	poll := poller.New(poller.Config{
		Interval:        cfg.Source.PollInterval,
		BackoffInterval: cfg.Source.BackoffInterval,
		FetchLimit:      cfg.Source.FetchLimit,
		FreshnessWindow: cfg.Source.FreshnessWindow,
	}, source, store, gate, dispatcher, logger)

	apiServer, err := api.New(&api.Config{
		Address:        cfg.Server.HTTPAddress,
		RateLimitPerIP: cfg.Server.RateLimitPerIP,
	}, api.Deps{
		Registry: reg,
		Store:    store,
		Tracker:  tracker,
		Notifier: dispatcher,
		Poller:   poll,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	apiServer.RegisterHealthChecker(health.NewSourceChecker(source))
	apiServer.RegisterHealthChecker(health.NewRegistryFileChecker(cfg.Registry.File))
	apiServer.RegisterHealthChecker(health.NewPollerChecker(func() bool {
		return poll.Stats().State == poller.StateBackoff
	}))

	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting plantsentry-server",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTPAddress),
		zap.String("metrics_address", cfg.Server.MetricsAddress),
		zap.String("source", cfg.Source.URL),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poll.Run(gctx) })
	g.Go(func() error { return apiServer.Run(gctx) })
	g.Go(func() error { return metricsServer.Run(gctx) })
	if cfg.Policy.File != "" {
		watcher, err := alerting.NewPolicyWatcher(cfg.Policy.File, gate, logger)
		if err != nil {
			return fmt.Errorf("watch notification policy: %w", err)
		}
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("run server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
