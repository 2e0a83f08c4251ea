package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicbook/clinic/internal/config"
	"github.com/clinicbook/clinic/internal/domain/booking"
	"github.com/clinicbook/clinic/internal/domain/catalog"
	"github.com/clinicbook/clinic/internal/domain/identity"
	"github.com/clinicbook/clinic/internal/domain/records"
	"github.com/clinicbook/clinic/internal/platform/apperr"
	"github.com/clinicbook/clinic/internal/platform/auth"
	"github.com/clinicbook/clinic/internal/platform/cache"
	"github.com/clinicbook/clinic/internal/platform/db"
	"github.com/clinicbook/clinic/internal/platform/middleware"
	"github.com/clinicbook/clinic/internal/platform/mongostore"
	"github.com/clinicbook/clinic/internal/platform/notification"
	"github.com/clinicbook/clinic/internal/platform/payment"
	"github.com/clinicbook/clinic/pkg/retry"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic appointment booking API server",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(catalogCmd())
	root.AddCommand(tokenCmd())
	return root
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			autoMigrate, _ := cmd.Flags().GetBool("migrate")
			dir, _ := cmd.Flags().GetString("dir")
			return runServer(autoMigrate, dir)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving (postgres only)")
	cmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations (postgres only)",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func withMigrator(dir string, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StorePostgres {
		return fmt.Errorf("migrations apply to the postgres store only (STORE_DRIVER=%s)", cfg.StoreDriver)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolOptions(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, dir))
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the treatment catalog",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert treatments from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			services, err := readCatalogFile(file)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			calc := catalog.NewCalculator(st.services, nil, cfg.StoreTimeout)
			if err := calc.Seed(ctx, services); err != nil {
				return err
			}
			fmt.Printf("Seeded %d treatment(s).\n", len(services))
			return nil
		},
	}
	seedCmd.Flags().String("file", "", "Path to a JSON array of {name, slots, price}")
	cmd.AddCommand(seedCmd)

	return cmd
}

func readCatalogFile(path string) ([]*catalog.Service, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var services []*catalog.Service
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("catalog file %s has no treatments", path)
	}
	return services, nil
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access credential for an email (development helper)",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AccessTokenSecret == "" {
				return fmt.Errorf("ACCESS_TOKEN_SECRET is not set")
			}
			token, err := auth.NewIssuer([]byte(cfg.AccessTokenSecret), cfg.TokenTTL).Issue(email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Email to embed in the credential")
	return cmd
}

func poolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}
}

// stores holds the repositories for the configured backend.
type stores struct {
	users    identity.UserRepository
	services catalog.ServiceRepository
	bookings booking.Repository
	docs     records.DocumentRepository
	checks   []db.Check
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		ms, err := mongostore.Connect(ctx, mongostore.Options{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureIndexes(ctx); err != nil {
			_ = ms.Close(context.Background())
			return nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")

		database := ms.Database()
		return &stores{
			users:    identity.NewUserRepoMongo(database),
			services: catalog.NewServiceRepoMongo(database),
			bookings: booking.NewRepoMongo(database),
			docs:     records.NewDocumentRepoMongo(database),
			checks:   []db.Check{ms.Check()},
			closers: []func(){func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ms.Close(ctx)
			}},
		}, nil

	default:
		pool, err := db.NewPool(ctx, poolOptions(cfg))
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to postgres")
		return &stores{
			users:    identity.NewUserRepoPG(pool),
			services: catalog.NewServiceRepoPG(pool),
			bookings: booking.NewRepoPG(pool),
			docs:     records.NewDocumentRepoPG(pool),
			checks:   []db.Check{db.PoolCheck(pool)},
			closers:  []func(){pool.Close},
		}, nil
	}
}

// deps is everything newServer wires into routes.
type deps struct {
	cfg       *config.Config
	logger    zerolog.Logger
	stores    *stores
	roleCache identity.RoleCache
	sender    notification.EmailSender
	gateway   payment.Gateway
}

func newServer(d deps) (*echo.Echo, *notification.Dispatcher) {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.ErrorHandler(logger)

	verifier := auth.NewVerifier([]byte(cfg.AccessTokenSecret))
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.Key = auth.CallerKey(verifier)
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RateLimit(rateLimitCfg))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Identity and roles
	resolver := identity.NewResolver(d.stores.users, cfg.StoreTimeout, logger)
	if d.roleCache != nil {
		resolver.SetCache(d.roleCache)
	}
	issuer := auth.NewIssuer([]byte(cfg.AccessTokenSecret), cfg.TokenTTL)
	gate := auth.NewGate(verifier, resolver)
	identitySvc := identity.NewService(d.stores.users, resolver, issuer, cfg.StoreTimeout)

	// Notifications
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.NotifyMaxAttempts
	dispatcher := notification.NewDispatcher(d.sender, notification.NewTemplateEngine(), notification.DispatcherConfig{
		From:    cfg.EmailSender,
		Timeout: cfg.NotifyTimeout,
		Retry:   retryCfg,
	}, logger)

	// Bookings and catalog
	mgr := booking.NewManager(d.stores.bookings, dispatcher, d.gateway, booking.Config{
		StoreTimeout:   cfg.StoreTimeout,
		PaymentTimeout: cfg.PaymentTimeout,
		Currency:       cfg.PaymentCurrency,
		ClinicAddress:  cfg.ClinicAddress,
	}, logger)
	calc := catalog.NewCalculator(d.stores.services, mgr, cfg.StoreTimeout)

	recordsSvc := records.NewService(d.stores.docs, cfg.StoreTimeout)

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello Doctors & Patients")
	})
	e.GET("/health", db.HealthHandler(5*time.Second, d.stores.checks...))

	g := e.Group("")
	identity.NewHandler(identitySvc).RegisterRoutes(g, gate)
	catalog.NewHandler(calc).RegisterRoutes(g)
	booking.NewHandler(mgr).RegisterRoutes(g, gate)
	records.NewHandler(recordsSvc).RegisterRoutes(g)
	notification.NewHandler(dispatcher).RegisterRoutes(g, gate.Identity, gate.Admin)

	return e, dispatcher
}

func runServer(autoMigrate bool, migrationsDir string) error {
	cfg, err := loadConfig()
	if err != nil {
		l := newLogger(nil)
		l.Error().Err(err).Msg("failed to load config")
		return err
	}
	logger := newLogger(cfg)
	if cfg.IsDev() && cfg.UsesDevSecret() {
		logger.Warn().Msg("ACCESS_TOKEN_SECRET is unset; signing credentials with the development secret")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
		return err
	}
	defer st.close()

	if autoMigrate && cfg.StoreDriver == config.StorePostgres {
		pool, err := db.NewPool(ctx, poolOptions(cfg))
		if err != nil {
			return err
		}
		count, err := db.NewMigrator(pool, migrationsDir).Up(ctx)
		pool.Close()
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info().Int("applied", count).Msg("migrations applied")
	}

	d := deps{cfg: cfg, logger: logger, stores: st}

	if cfg.RedisURL != "" {
		rc, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			// the resolver works without a cache
			logger.Warn().Err(err).Msg("redis unavailable, role cache disabled")
		} else {
			defer rc.Close()
			d.roleCache = cache.NewRoleCache(rc, cfg.RoleCacheTTL)
			st.checks = append(st.checks, db.Check{Name: "redis", Ping: rc.Ping})
			logger.Info().Dur("ttl", cfg.RoleCacheTTL).Msg("role cache enabled")
		}
	}

	if cfg.MailgunEnabled() {
		d.sender = notification.NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey)
	} else {
		logger.Warn().Msg("MAILGUN_DOMAIN/MAILGUN_API_KEY not set, emails will only be logged")
		d.sender = notification.LogSender{Logger: logger}
	}

	if cfg.StripeEnabled() {
		d.gateway = payment.NewStripeGateway(cfg.StripeSecretKey)
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set, payment intents are disabled")
		d.gateway = payment.Unconfigured{}
	}

	e, dispatcher := newServer(d)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Interface("stats", dispatcher.Stats()).Msg("pending notifications abandoned")
	}
	logger.Info().Msg("server stopped")
	return nil
}
