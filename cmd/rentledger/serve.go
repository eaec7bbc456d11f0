package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nhatro/rentledger/api"
	"github.com/nhatro/rentledger/assist"
)

func serveCmd(envFiles *[]string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, _ := cmd.Flags().GetBool("seed")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *envFiles)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					a.logger.Error("shutdown", "error", err)
				}
			}()

			if a.cfg.JWTSecret == "" {
				return errors.New("serve: RENTLEDGER_JWT_SECRET is required")
			}
			tokens, err := api.NewTokens(a.cfg.JWTSecret, a.cfg.JWTTTL)
			if err != nil {
				return err
			}
			if seed {
				if err := a.engine.Seed(ctx); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}

			assistant, err := newAssistant(ctx, a)
			if err != nil {
				return err
			}

			if a.cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &http.Server{
				Addr: a.cfg.Addr,
				Handler: api.New(a.engine, tokens,
					api.WithLogger(a.logger),
					api.WithAssistant(assistant),
					api.WithGatherer(a.registry),
					api.WithMetricFactory(a.metrics),
					api.WithBasePath(a.cfg.BasePath),
				).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", a.cfg.Addr, "base_path", a.cfg.BasePath, "assistant", assistant.Enabled())
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().Bool("seed", false, "Seed demo data into an empty store before serving")

	return cmd
}

// newAssistant connects to Gemini when an API key is configured. Without
// one the assistant is disabled and its endpoints answer 503.
func newAssistant(ctx context.Context, a *app) (*assist.Assistant, error) {
	if !a.cfg.AssistEnabled() {
		return assist.New(nil), nil
	}
	model, err := assist.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	return assist.New(model, assist.WithLogger(a.logger)), nil
}
