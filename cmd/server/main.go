package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"todo-agent-backend/config"
	"todo-agent-backend/dao"
	"todo-agent-backend/router"
	"todo-agent-backend/service/chat"
	"todo-agent-backend/service/mcpserver"
	"todo-agent-backend/service/mq"
	"todo-agent-backend/service/summarization"
	"todo-agent-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = config.DefaultConfigPath
	}
	if err := config.Init(path); err != nil {
		return err
	}
	cfg := config.Cfg

	slog.SetDefault(newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format))
	gin.SetMode(cfg.Server.Mode)

	if err := dao.Init(cfg.Database); err != nil {
		return err
	}

	llm, err := newModel(cfg.Model, cfg.Model.Name)
	if err != nil {
		return fmt.Errorf("failed to create model client: %v", err)
	}

	executor, err := chat.NewExecutor()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	serviceOpts := []chat.ServiceOption{
		chat.WithHistoryLimit(cfg.Agent.HistoryLimit),
		chat.WithRequestTimeout(cfg.Agent.RequestTimeout),
	}

	var mqClient *mq.Client
	if cfg.Summarizer.Enabled {
		summaryModel := cfg.Summarizer.Model
		if summaryModel == "" {
			summaryModel = cfg.Model.Name
		}
		summaryLLM, err := newModel(cfg.Model, summaryModel)
		if err != nil {
			return fmt.Errorf("failed to create summary model client: %v", err)
		}

		var summarizerOpts []summarization.Option
		if cfg.MQ.Enabled {
			mqClient, err = mq.New(cfg.MQ)
			if err != nil {
				return err
			}
			summarizerOpts = append(summarizerOpts, summarization.WithPublisher(mqClient))
		}

		summarizer := summarization.New(summaryLLM, cfg.Summarizer, summarizerOpts...)
		if mqClient != nil {
			if err := mqClient.RegisterHandler(mq.TopicChat, mq.TagSummary, summarizer.HandleSummaryMessage); err != nil {
				return err
			}
			if err := mqClient.Start(); err != nil {
				return err
			}
			defer mqClient.Shutdown()
		}

		summarizer.Run(ctx)
		defer summarizer.Close()
		serviceOpts = append(serviceOpts, chat.WithTurnObserver(summarizer))
	}

	agent := chat.NewAgent(llm, executor,
		chat.WithMaxTurns(cfg.Agent.MaxTurns),
		chat.WithCallTimeout(cfg.Agent.CallTimeout),
		chat.WithCallAttempts(cfg.Agent.CallAttempts),
	)
	chatService := chat.NewService(agent, serviceOpts...)

	mcpServer, err := mcpserver.New(executor)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: router.Register(router.Deps{
			Chat: chatService,
			MCP:  mcpserver.NewHTTPHandler(mcpServer),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down server gracefully", "err", err)
	}

	slog.Info("Server stopped")
	return nil
}

func newModel(cfg config.ModelConfig, name string) (llms.Model, error) {
	return openai.New(
		openai.WithModel(name),
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithHTTPClient(utils.NewHTTPClient(utils.WithTimeout(cfg.Timeout))),
	)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
