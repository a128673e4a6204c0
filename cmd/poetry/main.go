package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/integrail/poetry-assistant/internal/build"
	"github.com/integrail/poetry-assistant/pkg/client"
	"github.com/integrail/poetry-assistant/pkg/config"
	"github.com/integrail/poetry-assistant/pkg/llm"
	"github.com/integrail/poetry-assistant/pkg/proxy"
	"github.com/integrail/poetry-assistant/pkg/render"
)

func main() {
	dotenvErr := godotenv.Load()

	cfg := config.Load()

	var style string
	rootCmd := &cobra.Command{
		Use:     "poetry",
		Version: build.Version,
		Short:   "Poetry companion backed by a local Ollama model",
		Long:    "Runs the poetry prompt proxy in front of Ollama, or an interactive session against a running proxy",
		SilenceUsage: true,
	}
	cfg.BindPersistentFlags(rootCmd.PersistentFlags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the prompt proxy",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return errors.Wrap(cfg.ValidateServe(), "invalid configuration")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newServerLogger(cfg.Debug)
			if dotenvErr != nil {
				log.Info("No .env file found, using environment variables")
			}
			return serve(log, cfg)
		},
	}
	cfg.BindServeFlags(serveCmd.Flags())

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive poetry session",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return errors.Wrap(cfg.ValidateChat(), "invalid configuration")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return chat(cmd.Context(), cfg, style)
		},
	}
	cfg.BindChatFlags(chatCmd.Flags())
	chatCmd.Flags().StringVarP(&style, "style", "s", render.StyleDark, "Markdown style: dark, light or notty")

	rootCmd.AddCommand(serveCmd, chatCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServerLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func newUpstream(log *slog.Logger, cfg *config.Config) (llm.Client, error) {
	if cfg.Provider == config.ProviderOpenAI {
		return llm.NewOpenAI(log, cfg.OpenAIBaseURL, cfg.OpenAIToken, cfg.Model, cfg.UpstreamTimeout)
	}
	return llm.NewOllama(log, cfg.OllamaURL, cfg.UpstreamTimeout)
}

func serve(log *slog.Logger, cfg *config.Config) error {
	upstream, err := newUpstream(log, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create upstream client")
	}
	p := proxy.New(upstream, proxy.Config{
		Model:        cfg.Model,
		Temperature:  llm.DefaultTemperature,
		TopP:         llm.DefaultTopP,
		UpstreamName: cfg.UpstreamName(),
		UpstreamURL:  cfg.UpstreamURL(),
		UpstreamPort: cfg.UpstreamPort(),
	}, log)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     proxy.NewRouter(p, cfg.CORSOrigins),
		ReadTimeout: 15 * time.Second,
		// completions can take as long as the upstream timeout
		WriteTimeout: cfg.ProxyTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr, "upstream", cfg.UpstreamURL(), "model", cfg.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}
	stop()

	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	log.Info("Server stopped successfully")
	return nil
}

func chat(ctx context.Context, cfg *config.Config, style string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Debug {
		f, err := tea.LogToFile("debug.log", "poetry")
		if err != nil {
			return errors.Wrap(err, "failed to open debug log")
		}
		defer f.Close()
		slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	} else {
		// the terminal belongs to the UI
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}

	model, err := client.BubbleClient(ctx, cfg, style)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return errors.Wrap(err, "session ended with error")
	}
	return nil
}
