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

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orego/hospital/internal/config"
	"github.com/orego/hospital/internal/domain/booking"
	"github.com/orego/hospital/internal/domain/discharge"
	"github.com/orego/hospital/internal/domain/hospital"
	"github.com/orego/hospital/internal/domain/identity"
	"github.com/orego/hospital/internal/domain/notification"
	"github.com/orego/hospital/internal/domain/resource"
	"github.com/orego/hospital/internal/platform/auth"
	"github.com/orego/hospital/internal/platform/db"
	"github.com/orego/hospital/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-server",
		Short: "Hospital administration API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the initial admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			idCard, _ := cmd.Flags().GetString("id-card")
			phone, _ := cmd.Flags().GetString("phone")
			if username == "" || password == "" || email == "" {
				return fmt.Errorf("--username, --password and --email are required")
			}

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
			userSvc := identity.NewService(identity.NewPGRepository(pool), issuer, logger)

			u, err := userSvc.Register(ctx, &identity.RegisterRequest{
				Username:     username,
				Password:     password,
				Role:         identity.RoleAdmin,
				Name:         name,
				Birthday:     "1970-01-01",
				IDCardNumber: idCard,
				Address:      "Hospital premises",
				PhoneNumber:  phone,
				Email:        email,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Admin account created: %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().String("username", "", "Admin username")
	cmd.Flags().String("password", "", "Admin password")
	cmd.Flags().String("email", "", "Admin email")
	cmd.Flags().String("name", "Administrator", "Display name")
	cmd.Flags().String("id-card", "000000000V", "Admin id card number")
	cmd.Flags().String("phone", "0000000000", "Admin phone number")
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	issuer := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Repositories
	userRepo := identity.NewPGRepository(pool)
	resourceRepo := resource.NewPGRepository(pool)
	bookingRepo := booking.NewPGRepository(pool)
	dischargeRepo := discharge.NewPGRepository(pool)
	hospitalRepo := hospital.NewPGRepository(pool)
	notificationRepo := notification.NewPGRepository(pool)

	// Booking allocation and discharge approval run inside serializable
	// transactions; the context carries the transaction into every repo.
	serializableTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, db.Serializable, fn)
	}

	// Services
	userSvc := identity.NewService(userRepo, issuer, logger)
	resourceSvc := resource.NewService(resourceRepo, logger)
	notificationSvc := notification.NewService(notificationRepo, &recipientDirectory{repo: userRepo}, logger)
	bookingSvc := booking.NewService(
		bookingRepo,
		&bookingUserDirectory{repo: userRepo},
		&bookingResourceDirectory{repo: resourceRepo},
		&notifierAdapter{svc: notificationSvc},
		serializableTx,
		logger,
	)
	dischargeSvc := discharge.NewService(
		dischargeRepo,
		&dischargeUserDirectory{repo: userRepo},
		&bedDirectory{repo: resourceRepo},
		&dischargeNotifier{svc: notificationSvc},
		serializableTx,
		logger,
	)
	hospitalSvc := hospital.NewService(hospitalRepo, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))

	api := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	// The limiter runs after authentication on signed-in routes so it keys
	// per user; public routes key on client IP.
	limited := middleware.RateLimit(rateLimitCfg)

	authed := auth.Middleware(issuer)

	// Handlers
	identityHandler := identity.NewHandler(userSvc)
	identityHandler.RegisterAuthRoutes(api.Group("/auth", limited))
	identityHandler.RegisterSessionRoutes(api.Group("/auth", authed, limited))
	identityHandler.RegisterUserRoutes(api.Group("/users", authed, limited))

	resource.NewHandler(resourceSvc).RegisterRoutes(api.Group("/resources", authed, limited))
	booking.NewHandler(bookingSvc).RegisterRoutes(api.Group("/bookings", authed, limited))
	discharge.NewHandler(dischargeSvc).RegisterRoutes(api.Group("/discharges", authed, limited))
	notification.NewHandler(notificationSvc).RegisterRoutes(api.Group("/notifications", authed, limited))

	hospitalHandler := hospital.NewHandler(hospitalSvc)
	hospitalHandler.RegisterPublicRoutes(api.Group("/hospital", limited))
	hospitalHandler.RegisterAdminRoutes(api.Group("/hospital", authed, limited, auth.RequireRole("admin")))

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// errorHandler renders every error as {"error": message}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprintf("%v", he.Message)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}

// bookingUserDirectory adapts the identity repository to the
// booking.UserDirectory port, avoiding an import cycle between the booking
// and identity packages.
type bookingUserDirectory struct {
	repo identity.Repository
}

func (d *bookingUserDirectory) Participant(ctx context.Context, id uuid.UUID) (*booking.Participant, error) {
	u, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking.Participant{ID: u.ID, Role: u.Role, Name: u.Name, Active: u.IsActive}, nil
}

// bookingResourceDirectory adapts the resource repository to the
// booking.ResourceDirectory port. Status flips go through the repository so
// they join the transaction bound to the context.
type bookingResourceDirectory struct {
	repo resource.Repository
}

func (d *bookingResourceDirectory) Asset(ctx context.Context, id uuid.UUID) (*booking.Asset, error) {
	r, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking.Asset{ID: r.ID, Kind: r.Kind, Label: r.Identifier(), Status: r.Status}, nil
}

func (d *bookingResourceDirectory) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return d.repo.UpdateStatus(ctx, id, status)
}

// notifierAdapter exposes the notification service as booking.Notifier.
type notifierAdapter struct {
	svc *notification.Service
}

func (n *notifierAdapter) Notify(ctx context.Context, userID uuid.UUID, title, message string) error {
	return n.svc.Notify(ctx, userID, title, message)
}

// dischargeUserDirectory adapts the identity repository to the
// discharge.UserDirectory port.
type dischargeUserDirectory struct {
	repo identity.Repository
}

func (d *dischargeUserDirectory) Person(ctx context.Context, id uuid.UUID) (*discharge.Person, error) {
	u, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &discharge.Person{ID: u.ID, Role: u.Role, Name: u.Name, Active: u.IsActive}, nil
}

// bedDirectory adapts the resource repository to the discharge.BedDirectory
// port.
type bedDirectory struct {
	repo resource.Repository
}

func (d *bedDirectory) BedLabel(ctx context.Context, id uuid.UUID) (string, error) {
	r, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return r.Identifier(), nil
}

func (d *bedDirectory) Release(ctx context.Context, id uuid.UUID) error {
	return d.repo.UpdateStatus(ctx, id, resource.StatusAvailable)
}

// dischargeNotifier exposes the notification service as discharge.Notifier.
type dischargeNotifier struct {
	svc *notification.Service
}

func (n *dischargeNotifier) Notify(ctx context.Context, userID uuid.UUID, title, message string) error {
	return n.svc.Notify(ctx, userID, title, message)
}

// recipientDirectory resolves broadcast audiences from the identity
// repository.
type recipientDirectory struct {
	repo identity.Repository
}

func (d *recipientDirectory) ActiveUserIDs(ctx context.Context, role string) ([]uuid.UUID, error) {
	const batch = 500
	var ids []uuid.UUID
	for offset := 0; ; offset += batch {
		users, total, err := d.repo.List(ctx, identity.Filter{
			Role:       role,
			ActiveOnly: true,
			Limit:      batch,
			Offset:     offset,
		})
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		if offset+batch >= total || len(users) == 0 {
			break
		}
	}
	return ids, nil
}
