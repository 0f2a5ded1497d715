package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/auth"
	"github.com/gracechapel/church-backend/internal/livestatus"
	"github.com/gracechapel/church-backend/internal/payment"
	paymentpostgres "github.com/gracechapel/church-backend/internal/payment/postgres"
	"github.com/gracechapel/church-backend/internal/paymentgateway"
	"github.com/gracechapel/church-backend/internal/sermon"
	sermonpostgres "github.com/gracechapel/church-backend/internal/sermon/postgres"
	"github.com/gracechapel/church-backend/internal/transport"
	"github.com/gracechapel/church-backend/internal/transport/rest"
	"github.com/gracechapel/church-backend/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config        *internal.Config
	DB            *sqlx.DB
	GormDB        *gorm.DB
	Router        *chi.Mux
	Logger        *slog.Logger
	SermonService *sermon.Service
	LivePoller    *livestatus.Poller
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	deps.LivePoller.Start(rootCtx)
	scheduler := startSermonSync(rootCtx, deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		if scheduler != nil {
			scheduler.Stop()
		}
		stopBackground()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

// startSermonSync runs an initial sync when the mirror is empty and schedules
// the recurring one.
func startSermonSync(ctx context.Context, deps *Dependencies) *cron.Cron {
	go func() {
		count, err := deps.SermonService.Count()
		if err != nil {
			deps.Logger.Error("failed to count sermons", "error", err)
			return
		}
		if count == 0 {
			deps.Logger.Info("sermon mirror empty, running initial sync")
			if err := deps.SermonService.Sync(ctx); err != nil {
				deps.Logger.Error("initial sermon sync failed", "error", err)
			}
		}
	}()

	scheduler := cron.New()
	schedule := deps.Config.Sermons.SyncSchedule
	_, err := scheduler.AddFunc(schedule, func() {
		deps.Logger.Info("scheduled sermon sync started")
		syncCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := deps.SermonService.Sync(syncCtx); err != nil {
			deps.Logger.Error("scheduled sermon sync failed", "error", err)
			return
		}
		deps.Logger.Info("scheduled sermon sync complete")
	})
	if err != nil {
		deps.Logger.Error("invalid sermon sync schedule", "schedule", schedule, "error", err)
		return nil
	}

	scheduler.Start()
	return scheduler
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn: db.DB,
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	// Payment flow
	gatewayClient := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:        config.Mpesa.BaseURL,
		ShortCode:      config.Mpesa.ShortCode,
		Passkey:        config.Mpesa.Passkey,
		ConsumerKey:    config.Mpesa.ConsumerKey,
		ConsumerSecret: config.Mpesa.ConsumerSecret,
		BearerToken:    config.Mpesa.BearerToken,
		CallbackURL:    config.Mpesa.CallbackURL,
		Timeout:        config.Mpesa.Timeout,
	}, log)

	transactionRepo := paymentpostgres.NewTransactionRepository(gormDB)
	paymentService := payment.NewService(transactionRepo, gatewayClient, config.Mpesa.AmountCeiling, config.Mpesa.Timeout, log)

	// Sermon mirror
	sermonRepo := sermonpostgres.NewSermonRepository(gormDB)
	youtubeClient := sermon.NewYouTubeClient(config.Sermons.YouTubeAPIKey, config.Sermons.YouTubeChannelID, log)
	facebookClient := sermon.NewFacebookClient(config.Sermons.FacebookPageID, config.Sermons.FacebookAccessToken, log)
	sermonService := sermon.NewService(sermonRepo, []sermon.VideoSource{
		sermon.NewYouTubeSource(youtubeClient, config.Sermons.MaxResults),
		sermon.NewFacebookSource(facebookClient),
	}, log)

	// Livestream poller
	livePoller := livestatus.NewPoller(youtubeClient, facebookClient, config.Livestream.PollInterval, log)

	router := chi.NewRouter()
	deps := &Dependencies{
		Config:        config,
		Logger:        log,
		DB:            db,
		GormDB:        gormDB,
		Router:        router,
		SermonService: sermonService,
		LivePoller:    livePoller,
	}

	rest.RegisterAllRoutes(
		router,
		db.DB,
		config,
		auth.NewHandler(config.Security.GuestTokenSecret, config.Security.GuestTokenTTL, log),
		payment.NewHandler(paymentService, log),
		payment.NewWebhookHandler(transport.NewBaseHandler(log), paymentService, log),
		sermon.NewHandler(sermonService, log),
		livestatus.NewHandler(livePoller, log),
		log,
	)

	return deps, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
