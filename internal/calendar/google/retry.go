package google

import (
	"context"
	"fmt"
)

// refreshFunc exchanges a refresh token for a fresh access token.
type refreshFunc func(ctx context.Context, refreshToken string) (string, error)

// callFunc performs one API call authenticated with the given access token.
type callFunc func(ctx context.Context, accessToken string) error

// authRetry invokes call with the supplied access token. When the first
// attempt fails with an auth error and a refresh token is available, it
// obtains a fresh access token exactly once and retries once. Any other
// failure, and any failure of the retry itself, is returned to the caller.
func authRetry(ctx context.Context, accessToken, refreshToken string, refresh refreshFunc, call callFunc) error {
	err := call(ctx, accessToken)
	if err == nil || !IsAuthError(err) {
		return err
	}
	if refreshToken == "" || refresh == nil {
		return err
	}

	fresh, refreshErr := refresh(ctx, refreshToken)
	if refreshErr != nil {
		return fmt.Errorf("refreshing access token: %w", refreshErr)
	}

	return call(ctx, fresh)
}
