package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pearl/internal/agent"
	"pearl/internal/config"
	pearlerrors "pearl/internal/errors"
	"pearl/internal/job"
	"pearl/internal/llm"
	"pearl/internal/logging"
	"pearl/internal/memory"
	"pearl/internal/observability"
	"pearl/internal/orchestrator"
	"pearl/internal/server"
	"pearl/internal/tools"
)

var debugMode bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "pearl-server",
		Short: "PEARL cognitive agent server",
		Long: `pearl-server runs goal-directed agent jobs in the background.
Submit a goal over HTTP and poll its status while the agent plans,
executes tools, and reflects on what it learned.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging and gin debug mode")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if debugMode {
		cfg.Server.Debug = true
	}
	if cfg.Server.Debug {
		logging.SetLevel(logging.DEBUG)
	}
	logger := logging.NewComponentLogger("main")

	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		TimeoutSec: cfg.LLM.TimeoutSec,
	})
	if err != nil {
		return fmt.Errorf("create reasoning client: %w", err)
	}

	gate, err := llm.NewGate(cfg.Agent.ReasoningCapacity, client, logging.NewComponentLogger("llm"))
	if err != nil {
		return err
	}

	embed := chromem.NewEmbeddingFuncOpenAI(cfg.LLM.APIKey, chromem.EmbeddingModelOpenAI(cfg.Memory.EmbedModel))
	store, err := memory.NewStore(memory.StoreConfig{
		PersistPath: cfg.Memory.PersistPath,
		Collection:  cfg.Memory.Collection,
	}, memory.EmbeddingFunc(embed))
	if err != nil {
		return fmt.Errorf("create memory store: %w", err)
	}
	bank, err := memory.NewManager(store, &memory.WriteGate{}, logging.NewComponentLogger("memory"))
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewReasonTool(gate)); err != nil {
		return err
	}
	if cfg.Tools.TavilyAPIKey != "" {
		if err := registry.Register(tools.NewWebSearchTool(cfg.Tools.TavilyAPIKey)); err != nil {
			return err
		}
	} else {
		logger.Warn("Tavily API key not set; web_search tool disabled")
	}

	jobs := job.NewRegistry(logging.NewComponentLogger("job"))

	retry := pearlerrors.DefaultRetryConfig()
	if cfg.Agent.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.Agent.RetryMaxAttempts
	}
	engine := agent.New(jobs, gate, registry, bank, agent.Config{
		TopKMemories: cfg.Agent.TopKMemories,
		Retry:        retry,
	}, logging.NewComponentLogger("agent"))

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)
	metrics.TrackReasoningPermits(gate.InFlight)

	orch := orchestrator.New(jobs, engine, metrics, logging.NewComponentLogger("orchestrator"))

	srv := server.New(orch, server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		EnableCORS:        cfg.Server.EnableCORS,
		Debug:             cfg.Server.Debug,
		DefaultIterations: cfg.Agent.DefaultIterations,
	}, promRegistry, logging.NewComponentLogger("server"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.Info("pearl-server started (model=%s, reasoning_capacity=%d)", client.Model(), gate.Capacity())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Error("Orchestrator shutdown: %v", err)
	}
	logger.Info("Shutdown complete")
	return nil
}
