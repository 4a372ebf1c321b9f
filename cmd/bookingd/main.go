package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/booking-sync/internal/application"
	"github.com/example/booking-sync/internal/calendar/google"
	"github.com/example/booking-sync/internal/config"
	httptransport "github.com/example/booking-sync/internal/http"
	"github.com/example/booking-sync/internal/persistence"
	"github.com/example/booking-sync/internal/persistence/sqlite"
	"github.com/example/booking-sync/internal/renewal"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Ping(ctx); err != nil {
		logger.Error("failed to reach storage", "error", err)
		os.Exit(1)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	provider := google.NewAdapter(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		CalendarID:   cfg.GoogleCalendarID,
		Timeout:      cfg.ProviderTimeout,
		RateLimit: google.RateLimitConfig{
			RequestsPerSecond: cfg.ProviderRateLimit,
			BurstSize:         cfg.ProviderBurst,
		},
	}, logger)

	bookingRepo := newBookingRepositoryAdapter(storage.Bookings())
	watchRepo := newWatchRepositoryAdapter(storage.Watches())
	userDirectory := newUserDirectoryAdapter(storage.Users())

	bookingService := application.NewBookingService(bookingRepo, provider, logger, idGenerator, now)
	availabilityService := application.NewAvailabilityService(bookingRepo, provider, logger, now)
	watchService := application.NewWatchService(watchRepo, userDirectory, provider, logger, idGenerator, tokenGenerator, now, cfg.WebhookURL, cfg.RenewalHorizon)
	webhookService := application.NewWebhookService(watchRepo, userDirectory, bookingRepo, provider, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Bookings:     httptransport.NewBookingHandler(bookingService, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, logger),
		Watches:      httptransport.NewWatchHandler(watchService, logger),
		Webhooks:     httptransport.NewWebhookHandler(webhookService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.PrincipalFromHeader(),
		},
	})

	renewalDriver := renewal.NewDriver(watchService, logger, cfg.RenewalInterval)
	go renewalDriver.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) ListBookingsByUser(ctx context.Context, userID string) ([]application.Booking, error) {
	models, err := a.repo.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingRepositoryAdapter) FindOverlapping(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]application.Booking, error) {
	models, err := a.repo.FindOverlapping(ctx, persistence.BookingFilter{
		UserID:    userID,
		Start:     start,
		End:       end,
		ExcludeID: excludeID,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(models), nil
}

func (a *bookingRepositoryAdapter) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	return a.repo.SetCalendarEventID(ctx, id, eventID)
}

func (a *bookingRepositoryAdapter) UpdateBookingWindow(ctx context.Context, id string, start, end time.Time) error {
	return a.repo.UpdateBookingWindow(ctx, id, start, end)
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

type watchRepositoryAdapter struct {
	repo persistence.WatchRepository
}

func newWatchRepositoryAdapter(repo persistence.WatchRepository) *watchRepositoryAdapter {
	return &watchRepositoryAdapter{repo: repo}
}

func (a *watchRepositoryAdapter) GetWatchByUser(ctx context.Context, userID string) (application.CalendarWatch, error) {
	stored, err := a.repo.GetWatchByUser(ctx, userID)
	if err != nil {
		return application.CalendarWatch{}, err
	}
	return toApplicationWatch(stored), nil
}

func (a *watchRepositoryAdapter) GetWatchByChannelID(ctx context.Context, channelID string) (application.CalendarWatch, error) {
	stored, err := a.repo.GetWatchByChannelID(ctx, channelID)
	if err != nil {
		return application.CalendarWatch{}, err
	}
	return toApplicationWatch(stored), nil
}

func (a *watchRepositoryAdapter) FindWatchesExpiringWithin(ctx context.Context, reference time.Time, horizon time.Duration) ([]application.CalendarWatch, error) {
	models, err := a.repo.FindWatchesExpiringWithin(ctx, reference, horizon)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	watches := make([]application.CalendarWatch, 0, len(models))
	for _, model := range models {
		watches = append(watches, toApplicationWatch(model))
	}
	return watches, nil
}

func (a *watchRepositoryAdapter) UpsertWatch(ctx context.Context, watch application.CalendarWatch) (application.CalendarWatch, error) {
	stored, err := a.repo.UpsertWatch(ctx, toPersistenceWatch(watch))
	if err != nil {
		return application.CalendarWatch{}, err
	}
	return toApplicationWatch(stored), nil
}

func (a *watchRepositoryAdapter) DeleteWatchByUser(ctx context.Context, userID string) error {
	return a.repo.DeleteWatchByUser(ctx, userID)
}

type userDirectoryAdapter struct {
	repo persistence.UserRepository
}

func newUserDirectoryAdapter(repo persistence.UserRepository) *userDirectoryAdapter {
	return &userDirectoryAdapter{repo: repo}
}

func (a *userDirectoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userDirectoryAdapter) SetGoogleRefreshToken(ctx context.Context, userID, refreshToken string) error {
	return a.repo.SetGoogleRefreshToken(ctx, userID, refreshToken)
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:              model.ID,
		Title:           model.Title,
		Start:           model.Start,
		End:             model.End,
		UserID:          model.UserID,
		CalendarEventID: cloneString(model.CalendarEventID),
		CreatedAt:       model.CreatedAt,
	}
}

func toApplicationBookings(models []persistence.Booking) []application.Booking {
	if len(models) == 0 {
		return nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:              booking.ID,
		Title:           booking.Title,
		Start:           booking.Start,
		End:             booking.End,
		UserID:          booking.UserID,
		CalendarEventID: cloneString(booking.CalendarEventID),
		CreatedAt:       booking.CreatedAt,
	}
}

func toApplicationWatch(model persistence.CalendarWatch) application.CalendarWatch {
	return application.CalendarWatch{
		ID:           model.ID,
		UserID:       model.UserID,
		ChannelID:    model.ChannelID,
		ResourceID:   model.ResourceID,
		ChannelToken: model.ChannelToken,
		Expiration:   model.Expiration,
		CreatedAt:    model.CreatedAt,
	}
}

func toPersistenceWatch(watch application.CalendarWatch) persistence.CalendarWatch {
	return persistence.CalendarWatch{
		ID:           watch.ID,
		UserID:       watch.UserID,
		ChannelID:    watch.ChannelID,
		ResourceID:   watch.ResourceID,
		ChannelToken: watch.ChannelToken,
		Expiration:   watch.Expiration,
		CreatedAt:    watch.CreatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:                 model.ID,
		Email:              model.Email,
		GoogleID:           model.GoogleID,
		Name:               cloneString(model.Name),
		PictureURL:         cloneString(model.PictureURL),
		GoogleRefreshToken: cloneString(model.GoogleRefreshToken),
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
