package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/booking-sync/internal/persistence"
)

// WatchRepository captures the persistence interactions needed by the watch
// and webhook services.
type WatchRepository interface {
	GetWatchByUser(ctx context.Context, userID string) (CalendarWatch, error)
	GetWatchByChannelID(ctx context.Context, channelID string) (CalendarWatch, error)
	FindWatchesExpiringWithin(ctx context.Context, reference time.Time, horizon time.Duration) ([]CalendarWatch, error)
	UpsertWatch(ctx context.Context, watch CalendarWatch) (CalendarWatch, error)
	DeleteWatchByUser(ctx context.Context, userID string) error
}

// UserDirectory exposes the user lookups and credential writes needed by the
// calendar-facing services.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
	SetGoogleRefreshToken(ctx context.Context, userID, refreshToken string) error
}

// WatchProvider exposes the Google Calendar push-channel operations. Calls
// authenticate with the user's stored refresh token.
type WatchProvider interface {
	Register(ctx context.Context, refreshToken, channelID, channelToken, address string) (resourceID string, expiration time.Time, err error)
	Stop(ctx context.Context, refreshToken, channelID, resourceID string) error
	GetEvent(ctx context.Context, refreshToken, eventID string) (ProviderEvent, bool, error)
}

// DefaultRenewalHorizon is how far ahead of expiration a watch becomes
// eligible for renewal.
const DefaultRenewalHorizon = 24 * time.Hour

// WatchService manages the lifecycle of Google Calendar push channels.
type WatchService struct {
	watches        WatchRepository
	users          UserDirectory
	provider       WatchProvider
	logger         *slog.Logger
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	callbackURL    string
	renewalHorizon time.Duration
}

// NewWatchService wires dependencies for watch lifecycle operations. The
// callback URL is the publicly reachable webhook address registered with
// Google.
func NewWatchService(watches WatchRepository, users UserDirectory, provider WatchProvider, logger *slog.Logger, idGenerator, tokenGenerator func() string, now func() time.Time, callbackURL string, renewalHorizon time.Duration) *WatchService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	if renewalHorizon <= 0 {
		renewalHorizon = DefaultRenewalHorizon
	}
	return &WatchService{
		watches:        watches,
		users:          users,
		provider:       provider,
		logger:         defaultLogger(logger),
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		callbackURL:    callbackURL,
		renewalHorizon: renewalHorizon,
	}
}

// CreateWatch registers a push channel for the user's calendar, replacing any
// existing registration. Safe to call repeatedly.
func (s *WatchService) CreateWatch(ctx context.Context, params CreateWatchParams) (CalendarWatch, error) {
	if s == nil {
		return CalendarWatch{}, fmt.Errorf("WatchService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "watch", "create_watch", "user_id", params.Principal.UserID)

	user, err := s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		mapped := mapWatchRepoError(err)
		logger.Warn("user lookup failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return CalendarWatch{}, mapped
	}
	if user.GoogleRefreshToken == nil || *user.GoogleRefreshToken == "" {
		logger.Warn("watch rejected", "error_kind", ErrorKind(ErrPreconditionFailed))
		return CalendarWatch{}, ErrPreconditionFailed
	}
	refreshToken := *user.GoogleRefreshToken

	// Stop the previous channel first so Google does not keep delivering to
	// a registration we are about to replace. Failure here is non-fatal.
	if existing, err := s.watches.GetWatchByUser(ctx, params.Principal.UserID); err == nil {
		if existing.Expiration.After(s.now()) {
			if stopErr := s.provider.Stop(ctx, refreshToken, existing.ChannelID, existing.ResourceID); stopErr != nil {
				logger.Warn("stopping previous channel failed", "channel_id", existing.ChannelID, "error", stopErr)
			}
		}
	} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, persistence.ErrNotFound) {
		mapped := mapWatchRepoError(err)
		logger.Error("watch lookup failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return CalendarWatch{}, mapped
	}

	channelID := s.idGenerator()
	channelToken := s.tokenGenerator()

	resourceID, expiration, err := s.provider.Register(ctx, refreshToken, channelID, channelToken, s.callbackURL)
	if err != nil {
		logger.Error("channel registration failed", "error", err)
		return CalendarWatch{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	watch := CalendarWatch{
		ID:           s.idGenerator(),
		UserID:       params.Principal.UserID,
		ChannelID:    channelID,
		ResourceID:   resourceID,
		ChannelToken: channelToken,
		Expiration:   expiration,
		CreatedAt:    s.now(),
	}

	persisted, err := s.watches.UpsertWatch(ctx, watch)
	if err != nil {
		mapped := mapWatchRepoError(err)
		logger.Error("watch persistence failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return CalendarWatch{}, mapped
	}

	logger.Info("watch registered", "channel_id", persisted.ChannelID, "expiration", persisted.Expiration)
	return persisted, nil
}

// RenewExpiringWatches re-registers every watch that expires within the
// renewal horizon. Failures are isolated per user so one broken account never
// stalls the rest of the run.
func (s *WatchService) RenewExpiringWatches(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("WatchService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "watch", "renew_expiring_watches")

	expiring, err := s.watches.FindWatchesExpiringWithin(ctx, s.now(), s.renewalHorizon)
	if err != nil {
		mapped := mapWatchRepoError(err)
		logger.Error("expiring watch lookup failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return mapped
	}
	if len(expiring) == 0 {
		logger.Info("no watches due for renewal")
		return nil
	}

	renewed := 0
	for _, watch := range expiring {
		if _, err := s.CreateWatch(ctx, CreateWatchParams{Principal: Principal{UserID: watch.UserID}}); err != nil {
			logger.Error("watch renewal failed", "user_id", watch.UserID, "channel_id", watch.ChannelID, "error", err, "error_kind", ErrorKind(err))
			continue
		}
		renewed++
	}

	logger.Info("watch renewal completed", "due", len(expiring), "renewed", renewed, "failed", len(expiring)-renewed)
	return nil
}

// StoreRefreshToken persists the user's Google refresh token for later
// watch registration and reconciliation.
func (s *WatchService) StoreRefreshToken(ctx context.Context, params StoreRefreshTokenParams) error {
	if s == nil {
		return fmt.Errorf("WatchService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "watch", "store_refresh_token", "user_id", params.Principal.UserID)

	if strings.TrimSpace(params.RefreshToken) == "" {
		vErr := &ValidationError{}
		vErr.add("refresh_token", "refresh token is required")
		return vErr
	}

	if err := s.users.SetGoogleRefreshToken(ctx, params.Principal.UserID, params.RefreshToken); err != nil {
		mapped := mapWatchRepoError(err)
		logger.Warn("storing refresh token failed", "error", mapped, "error_kind", ErrorKind(mapped))
		return mapped
	}

	logger.Info("refresh token stored")
	return nil
}

func mapWatchRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
