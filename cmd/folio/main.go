package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"folio/internal/comment"
	"folio/internal/comment/spam"
	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/logging"
	"folio/internal/throttle"
	"folio/internal/web"
)

var (
	configPath string
	dsnFlag    string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "folio",
	Short:         "A wiki-style CMS with page history and comments",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dsnFlag != "" {
			cfg.DSN = dsnFlag
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger, err = logging.New(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and start the web server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("database migrated", zap.String("dsn", cfg.DSN))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "database connection string (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "folio:", err)
		os.Exit(1)
	}
}

// openDB opens and migrates the configured database.
func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.New(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var akismet comment.SpamChecker
	if cfg.AkismetEnabled() {
		client := spam.NewAkismet(cfg.AkismetKey, cfg.BaseURL, cfg.AkismetEndpoint)
		if err := client.VerifyKey(ctx); err != nil {
			logger.Warn("akismet key not verified, spam checks may fail", zap.Error(err))
		}
		akismet = client
	}

	var limiter throttle.Limiter
	if cfg.RedisURL != "" {
		rl, err := throttle.NewRedisLimiter(cfg.RedisURL, cfg.CommentRateLimit, cfg.CommentRateWindow)
		if err != nil {
			return err
		}
		defer rl.Close()
		limiter = rl
	} else {
		limiter = throttle.NewMemoryLimiter(cfg.CommentRateLimit, cfg.CommentRateWindow)
	}

	srv, err := web.NewServer(db, cfg, logger, akismet, limiter)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", cfg.Addr), zap.Bool("akismet", akismet != nil), zap.Bool("redis", cfg.RedisURL != ""))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
