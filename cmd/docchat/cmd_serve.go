package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/docchat/internal/agent"
	"github.com/user/docchat/internal/broker"
	"github.com/user/docchat/internal/config"
	"github.com/user/docchat/internal/docstore"
	"github.com/user/docchat/internal/httpapi"
	"github.com/user/docchat/internal/index"
	"github.com/user/docchat/internal/maintenance"
	"github.com/user/docchat/pkg/llm"
	"github.com/user/docchat/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docchat daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "docchat.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func newEmbedder(cfg *config.Config) index.Embedder {
	if cfg.Embedder.Type == "openai" {
		client := openai.NewEmbeddings(openai.EmbeddingsConfig{
			BaseURL: cfg.Embedder.BaseURL,
			APIKey:  cfg.Embedder.APIKey,
			Model:   cfg.Embedder.Model,
		})
		return index.NewRemoteEmbedder(client, 0)
	}
	return index.NewHashingEmbedder(cfg.Embedder.Dimension)
}

func newStore(cfg *config.Config) (*docstore.Store, error) {
	idx := index.New(newEmbedder(cfg))
	splitter := docstore.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	return docstore.New(cfg.UploadDir(), idx, splitter,
		docstore.WithMaxTextChars(cfg.Ingest.MaxTextChars))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Document store and index
	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("create document store: %w", err)
	}

	// LLM provider
	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	// Prompt builder
	prompts, err := agent.NewPromptBuilder(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		return fmt.Errorf("create prompt builder: %w", err)
	}

	// Tool registry
	registry := agent.NewRegistry()
	registry.Register(agent.NewSearchDocuments(store, cfg.Ingest.SearchK))
	registry.Register(agent.NewListDocuments(store))

	// Agent loop
	history := agent.NewHistoryStore()
	loop := agent.NewLoop(provider, prompts, history, registry, cfg.MaxToolRounds, slog.Default())

	// Job broker
	turnTimeout := time.Duration(cfg.TurnTimeoutSecs) * time.Second
	jobs := broker.New(loop.Run, cfg.MaxConcurrent, turnTimeout, slog.Default())

	// Scheduled reset
	janitor, err := maintenance.NewJanitor(store, cfg.ResetSchedule, slog.Default())
	if err != nil {
		return fmt.Errorf("create janitor: %w", err)
	}
	janitor.Start()
	defer janitor.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// HTTP server
	api := httpapi.NewServer(jobs, store, slog.Default())
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Handler(),
	}
	go func() {
		slog.Info("http server started", "listen", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("docchat started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"http_addr", cfg.HTTPAddr,
		"max_concurrent", cfg.MaxConcurrent,
		"max_tool_rounds", cfg.MaxToolRounds,
		"reset_schedule", cfg.ResetSchedule,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"embedder", cfg.Embedder.Type,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
