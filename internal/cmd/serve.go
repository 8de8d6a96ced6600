package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lokie-ree/aida-sub001/internal/audit"
	"github.com/Lokie-ree/aida-sub001/internal/server"
	"github.com/Lokie-ree/aida-sub001/internal/trigger"
)

var (
	servePort        int
	serveNoScheduler bool
	serveNoWebhook   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, voice webhook and retention scheduler",
	Long: `Starts the AIDA server:

  GET  /health                 liveness
  POST /v1/webhooks/voice      voice platform webhook (unauthenticated)
  POST /v1/voice/query         authenticated query, audited
  GET  /v1/audit               caller's audit entries
  POST /v1/retention/enforce   run retention now

API keys are read from AIDA_API_KEYS as comma-separated key:user pairs.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not run scheduled retention")
	serveCmd.Flags().BoolVar(&serveNoWebhook, "no-webhook", false, "do not mount the voice webhook")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.WarnIfDefaultKeys()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orch, err := buildOrchestrator(cfg, st.documents)
	if err != nil {
		return err
	}
	enforcer := buildEnforcer(cfg, st)

	scheduler := trigger.NewScheduler(enforcer)
	if !serveNoScheduler {
		if err := scheduler.RegisterRetention(cfg.RetentionSchedule); err != nil {
			return fmt.Errorf("registering retention schedule: %w", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	var webhook http.HandlerFunc
	if !serveNoWebhook {
		webhook = trigger.NewDispatcher(orch, cfg.WebhookFunctions...).HandleWebhook
	}

	if len(cfg.APIKeys) == 0 {
		log.Warn().Msg("AIDA_API_KEYS not set; authenticated endpoints will return 401")
	}

	srv := server.NewServer(
		orch,
		audit.NewRecorder(st.audit),
		webhook,
		cfg.APIKeys,
		server.WithAuditLister(st.audit),
		server.WithRetention(enforcer),
		server.WithRateLimit(cfg.RateLimitPerMinute),
	)

	addr := fmt.Sprintf(":%d", servePort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Int("cron_entries", scheduler.Entries()).
		Str("provider", cfg.LLMProvider).
		Str("model", cfg.LLMModel).
		Bool("webhook", webhook != nil).
		Msg("aida_serve_started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("server_shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server_stopped")
	return nil
}
