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

	"pdfquiz"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, port string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "webserver",
		Short: "Serve the PDF summary and quiz web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, port, verbose)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config (default config.yaml if present)")
	cmd.Flags().StringVar(&port, "port", "", "port to listen on, overrides the config")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, configPath, portFlag string, verbose bool) error {
	cfg, err := pdfquiz.LoadConfig(configPath)
	if err != nil {
		return err
	}
	pdfquiz.SetVerbose(verbose || cfg.Log.Verbose)
	gin.SetMode(gin.ReleaseMode)

	port := cfg.Server.Port
	if portFlag != "" {
		port = portFlag
	}

	var store pdfquiz.SessionStore = pdfquiz.NewMemorySessionStore()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = pdfquiz.NewRedisSessionStore(client, cfg.SessionTTL())
	}

	var archive *pdfquiz.Archive
	if cfg.Archive.Path != "" {
		archive, err = pdfquiz.OpenArchive(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer archive.Close()
		if err := archive.CreateTables(); err != nil {
			return err
		}
	}

	secret := cfg.Server.SessionSecret
	if secret == "" {
		pdfquiz.Logger().Warn("SESSION_SECRET not set, generated an ephemeral secret; sessions will not survive restarts")
		secret = string(securecookie.GenerateRandomKey(32))
	}

	genCfg := cfg.Generator()
	generator := pdfquiz.NewGenerator(genCfg)
	if !generator.Configured() {
		pdfquiz.Logger().Warn("OPENAI_API_KEY not set, summaries and quizzes will use placeholder content")
	}

	server, err := NewServer(ServerOptions{
		Store:         store,
		Generator:     generator,
		Archive:       archive,
		SessionSecret: secret,
		MaxUploadMB:   cfg.Server.MaxUploadMB,
		QuestionTime:  cfg.QuestionTimeLimit(),
		TranscriptDir: cfg.Log.TranscriptDir,

		// one extraction and one generation call per request
		ProcessingTimeout: genCfg.Timeout + 30*time.Second,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pdfquiz.Logger().Infow("Starting server", "port", port, "redis", cfg.Redis.Addr != "", "archive", archive != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		pdfquiz.Logger().Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
