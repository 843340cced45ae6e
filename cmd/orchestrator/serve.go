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

	"github.com/spf13/cobra"

	"github.com/cortexhub/orchestrator-gateway/internal/backend"
	"github.com/cortexhub/orchestrator-gateway/internal/channel/webchat"
	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/events"
	"github.com/cortexhub/orchestrator-gateway/internal/flow"
	"github.com/cortexhub/orchestrator-gateway/internal/gateway"
	"github.com/cortexhub/orchestrator-gateway/internal/healthring"
	"github.com/cortexhub/orchestrator-gateway/internal/inference"
	"github.com/cortexhub/orchestrator-gateway/internal/knowledge"
	"github.com/cortexhub/orchestrator-gateway/internal/llm"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/merge"
	"github.com/cortexhub/orchestrator-gateway/internal/resolver"
	"github.com/cortexhub/orchestrator-gateway/internal/scheduler"
	"github.com/cortexhub/orchestrator-gateway/internal/server"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
	"github.com/cortexhub/orchestrator-gateway/internal/tools"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.WithComponent("main")
	logger.Info("Starting orchestrator gateway", "version", version)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	inferenceRouter, err := inference.NewRouter(ctx, &cfg.Inference)
	if err != nil {
		return fmt.Errorf("failed to create inference router: %w", err)
	}
	for name, err := range inferenceRouter.Health(ctx) {
		if err != nil {
			logger.Warn("Inference engine unavailable", "engine", name, "error", err)
		} else {
			logger.Info("Inference engine OK", "engine", name)
		}
	}

	publisher, err := events.Open(cfg.Events)
	if err != nil {
		logger.Warn("Event stream unavailable, events disabled", "error", err)
		publisher = events.Nop{}
	}

	backendClient := backend.NewClient(&cfg.Backend)
	knowledgeClient := knowledge.NewClient(&cfg.Knowledge)
	store := session.NewMemoryStore()
	svc := llm.NewService(inferenceRouter, cfg.Inference.ClassifyLane, cfg.Inference.RespondLane)

	createFlow := flow.New(store, resolver.New(backendClient), backendClient, svc,
		flow.NewKeywordClassifier(cfg.Conversation.Locale, "en"), publisher)

	registry := tools.NewRegistry()
	registry.Register(createFlow.Tool())
	registry.Register(tools.NewKnowledgeTool(knowledgeClient))

	gw := gateway.New(store, svc, svc, merge.NewEngine(cfg.Conversation.NameKeywords), registry)

	ring := healthring.NewHealthRing(cfg.HealthRing)
	ring.Add("backend", backendClient)
	ring.Add("knowledge", knowledgeClient)
	ring.Add("inference", healthring.CheckerFunc(func(ctx context.Context) error {
		var errs []error
		for name, err := range inferenceRouter.Health(ctx) {
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		return errors.Join(errs...)
	}))

	var prober scheduler.Prober
	if cfg.HealthRing.Enabled {
		prober = ring
		go ring.CheckAll(ctx)
	}
	sched, err := scheduler.NewScheduler(cfg.Scheduler, prober, store)
	if err != nil {
		return err
	}
	sched.Start()

	opts := []server.Option{server.WithEngines(inferenceRouter), server.WithHealthRing(ring)}
	var wc *webchat.WebChatAdapter
	if cfg.Channels.WebChat.Enabled {
		wc = webchat.NewWebChatAdapter(cfg.Channels.WebChat, gw)
		opts = append(opts, server.WithWebChat(wc))
		logger.Info("WebChat adapter initialized")
	}
	srv := server.New(cfg.Server, gw, opts...)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("Server listening", "host", cfg.Server.Host, "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error("Server error", "error", err)
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if wc != nil {
		logger.Info("Closing WebChat connections", "connections", wc.Connections())
		wc.Close()
	}

	logger.Info("Stopping HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Stopping scheduler")
	sched.Stop()

	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close event stream", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
