package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/andrewpaige1/prepass-api/analysis"
	"github.com/andrewpaige1/prepass-api/auth"
	"github.com/andrewpaige1/prepass-api/config"
	"github.com/andrewpaige1/prepass-api/handlers"
	"github.com/andrewpaige1/prepass-api/middleware"
	"github.com/andrewpaige1/prepass-api/repository"
	"github.com/andrewpaige1/prepass-api/session"
)

var (
	v = config.NewViper()

	rootCmd = &cobra.Command{
		Use:   "prepass",
		Short: "Prepass study API: flashcards, quizzes and exam readiness from your notes.",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			db, err := config.Connect(cfg)
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			slog.Info("database migrated", "driver", cfg.DBDriver)
			return nil
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if !cfg.IsDev() {
				return errors.New("tokens can only be minted in dev mode")
			}

			sub, _ := cmd.Flags().GetString("sub")
			email, _ := cmd.Flags().GetString("email")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := auth.CreateToken(authSettings(cfg), sub, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("db-driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "prepass_dev.db", "database source name")
	serveCmd.Flags().Int("port", 8080, "port of server")

	tokenCmd.Flags().String("sub", "dev-user", "subject of the token")
	tokenCmd.Flags().String("email", "", "email claim of the token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "lifetime of the token")

	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if err := v.BindPFlags(serveCmd.Flags()); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func authSettings(cfg *config.Config) auth.Settings {
	return auth.Settings{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	// Initialize database connection
	db, err := config.Connect(cfg)
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		return err
	}
	store := repository.New(db)

	limits := analysis.Limits{MaxFileBytes: cfg.MaxFileBytes, MaxImageDimension: cfg.MaxImageDimension}
	h := &handlers.Handler{
		Store:    store,
		Sessions: session.NewRegistry(),
		Limits:   limits,
		Logger:   logger,
	}
	if cfg.AIEnabled() {
		h.Analyzer = analysis.NewGatewayAnalyzer(analysis.GatewayConfig{
			BaseURL:    cfg.AIBaseURL,
			APIKey:     cfg.AIAPIKey,
			Model:      cfg.AIModel,
			MaxRetries: cfg.AIMaxRetries,
			Timeout:    cfg.AITimeout,
		}, logger)
	} else {
		logger.Warn("no AI gateway key configured, notes analysis is disabled")
	}

	jwtMiddleware, err := middleware.EnsureValidToken(authSettings(cfg), logger)
	if err != nil {
		return err
	}
	syncUser := middleware.SyncUserMiddleware(store, logger)
	authn := func(next http.Handler) http.Handler {
		return jwtMiddleware(syncUser(next))
	}
	limiter := middleware.NewRateLimiter(cfg.AnalyzePerMinute, cfg.AnalyzePerMinute)

	router := h.Routes(authn, limiter.PerUser)

	// Configure CORS with specific options
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(middleware.Logging(logger)(router))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + strconv.Itoa(cfg.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		// analysis waits on the gateway, possibly through retries
		WriteTimeout: cfg.AITimeout*time.Duration(max(cfg.AIMaxRetries, 1)) + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := session.NewSweeper(h.Sessions, cfg.SessionIdle, logger)
	sweeper.Add("analyze rate limiter", limiter)
	if err := sweeper.Start(time.Hour); err != nil {
		return err
	}
	defer sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down")
	}
	return nil
}

func main() {
	config.LoadDotEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
