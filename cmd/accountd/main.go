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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/config"
	"github.com/xxxsen/accountd/internal/db"
	"github.com/xxxsen/accountd/internal/filestore"
	"github.com/xxxsen/accountd/internal/handler"
	"github.com/xxxsen/accountd/internal/job"
	"github.com/xxxsen/accountd/internal/middleware"
	"github.com/xxxsen/accountd/internal/repo"
	"github.com/xxxsen/accountd/internal/schedule"
	"github.com/xxxsen/accountd/internal/service"
	"github.com/xxxsen/accountd/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "accountd",
		Short: "account and session backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run accountd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(context.Background()).Info("migrations applied")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(context.Background(), conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return conn, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg := logutil.GetLogger(ctx)
	lg.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.Bool("sessions", cfg.Session.Enabled),
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(conn)
	otpRepo := repo.NewEmailOTPRepo(conn)
	scheduler := schedule.NewCronScheduler()

	var sessions session.Store
	if cfg.Session.Enabled {
		retention := time.Duration(cfg.Session.RetentionHours) * time.Hour
		switch cfg.Session.Backend {
		case config.SessionBackendRedis:
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			sessions = session.NewRedisStore(client, cfg.Redis.Prefix, retention)
		default:
			dbStore := session.NewDBStore(repo.NewSessionRepo(conn), retention)
			if err := scheduler.AddJob(job.NewSessionCleanupJob(dbStore), cfg.Jobs.SessionCleanupSpec); err != nil {
				return fmt.Errorf("schedule session cleanup: %w", err)
			}
			sessions = dbStore
		}
	}
	if err := scheduler.AddJob(job.NewOTPCleanupJob(otpRepo, 24*time.Hour), cfg.Jobs.OTPCleanupSpec); err != nil {
		return fmt.Errorf("schedule otp cleanup: %w", err)
	}

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	authService := service.NewAuthService(userRepo, sessions, []byte(cfg.JWTSecret),
		time.Duration(cfg.JWTTTLHours)*time.Hour, cfg.PasswordMinLength)
	accountService := service.NewAccountService(userRepo, store, cfg.UploadMaxBytes)
	otpService := service.NewOTPService(otpRepo, service.NewEmailSender(cfg.Mail),
		time.Duration(cfg.OTP.ExpireMinutes)*time.Minute)

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Profile:       handler.NewProfileHandler(accountService),
		OTP:           handler.NewOTPHandler(otpService),
		Files:         handler.NewFileHandler(accountService, store, cfg.UploadMaxBytes),
		Authenticator: authService,
		RateLimit:     time.Duration(cfg.RateLimitSeconds) * time.Second,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	// The engine's own Run has no shutdown hook, so serve it directly.
	server := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start(ctx)
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	lg.Info("server stopped")
	return nil
}
