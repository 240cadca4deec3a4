package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baumi-labs/baumi-core/internal/adapters/driven/ai"
	"github.com/baumi-labs/baumi-core/internal/adapters/driving/http"
	"github.com/baumi-labs/baumi-core/internal/core/services"
	"github.com/baumi-labs/baumi-core/internal/runtime"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, opts.envFile, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	rt := runtime.NewServices(a.runtime)
	defer rt.Close()

	settings := a.cfg.LLMSettings()
	if err := rt.Configure(ai.NewFactory(), settings); err != nil {
		a.logger.Error("chat model unavailable", "provider", settings.Provider, "error", err)
	} else if rt.ChatModel() == nil {
		a.logger.Warn("no API key for chat provider; /chat will answer 500", "provider", settings.Provider)
	} else {
		a.logger.Info("chat model configured", "provider", settings.Provider, "model", rt.ChatModel().Model())
	}

	prompts := a.promptAssembler()
	chatService := services.NewChatService(services.ChatServiceConfig{
		Services:    rt,
		Prompts:     prompts,
		Temperature: &a.cfg.ChatTemperature,
		Logger:      a.logger,
	})

	var lock http.Pinger
	if a.lock != nil {
		lock = a.lock
	}

	server := http.NewServer(http.Config{
		Host:           a.cfg.Host,
		Port:           a.cfg.Port,
		Version:        version,
		OwnerID:        a.cfg.OwnerID,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		Logger:         a.logger,
	}, a.knowledgeBaseService(), chatService, a.store, lock)

	return server.Run(ctx)
}
