package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// RefreshPath is the credential refresh endpoint. The refresh credential is
// the httpOnly cookie carried by the jar, so requests have no body.
const RefreshPath = "/api/v1/auth/refresh"

const (
	defaultRefreshAttempts = 3
	defaultRefreshBase     = time.Second
	defaultRefreshMax      = 8 * time.Second
)

const refreshFlightKey = "refresh"

// RefreshFunc performs one refresh attempt and reports the response status.
// Status 0 means the request produced no response.
type RefreshFunc func(ctx context.Context) (int, error)

// RefreshRequest builds the RefreshFunc used in production wiring: a bare
// POST against the refresh endpoint sharing the client's cookie jar. It
// deliberately bypasses the wrapped client so a 401 here is never intercepted.
func RefreshRequest(httpClient *http.Client, baseURL string) RefreshFunc {
	return func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+RefreshPath, nil)
		if err != nil {
			return 0, fmt.Errorf("building refresh request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()
		return resp.StatusCode, nil
	}
}

type RefreshManagerParams struct {
	Refresh RefreshFunc
	Logger  *logger.Logger

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnSessionExpired runs once per terminal refresh cycle, before waiters
	// are released.
	OnSessionExpired func(ctx context.Context)
}

// RefreshManager coordinates credential refresh across concurrent callers.
// All requests that hit a 401 while a refresh cycle is in flight share that
// cycle's outcome; only one chain of refresh calls exists at a time.
type RefreshManager struct {
	refresh          RefreshFunc
	logg             *logger.Logger
	maxAttempts      int
	baseDelay        time.Duration
	maxDelay         time.Duration
	onSessionExpired func(ctx context.Context)

	group singleflight.Group
}

func NewRefreshManager(params RefreshManagerParams) (*RefreshManager, error) {
	if params.Refresh == nil {
		return nil, errors.New("refresh func is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultRefreshAttempts
	}
	base := params.BaseDelay
	if base <= 0 {
		base = defaultRefreshBase
	}
	max := params.MaxDelay
	if max <= 0 {
		max = defaultRefreshMax
	}

	return &RefreshManager{
		refresh:          params.Refresh,
		logg:             params.Logger,
		maxAttempts:      attempts,
		baseDelay:        base,
		maxDelay:         max,
		onSessionExpired: params.OnSessionExpired,
	}, nil
}

// Await blocks until the in-flight refresh cycle completes, starting one if
// none is running. A nil return means credentials were renewed. The cycle
// itself runs detached so one caller giving up does not fail the rest.
func (m *RefreshManager) Await(ctx context.Context) error {
	ch := m.group.DoChan(refreshFlightKey, func() (any, error) {
		return nil, m.runCycle(context.Background())
	})

	select {
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, ctx.Err(), "canceled while waiting for credential refresh")
	case res := <-ch:
		return res.Err
	}
}

func (m *RefreshManager) runCycle(ctx context.Context) error {
	delay := m.baseDelay
	var lastErr error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		status, err := m.refresh(ctx)
		if err == nil && status >= http.StatusOK && status < http.StatusMultipleChoices {
			m.logg.Info(m.logg.WithField(ctx, "attempt", attempt), "credentials refreshed")
			return nil
		}

		// A rejected refresh credential cannot improve with retries.
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			m.expire(ctx)
			return pkgerrors.
				New(pkgerrors.CodeSessionExpired, pkgerrors.MetadataFor(pkgerrors.CodeSessionExpired).PublicMessage).
				WithStatus(status)
		}

		if err == nil {
			err = fmt.Errorf("refresh endpoint returned status %d", status)
		}
		lastErr = err

		if attempt == m.maxAttempts {
			break
		}

		fields := map[string]any{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		}
		m.logg.Warn(m.logg.WithFields(ctx, fields), "credential refresh failed, retrying")

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			m.expire(ctx)
			return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, sleepErr, "credential refresh interrupted")
		}
		delay = nextBackoff(delay, m.baseDelay, m.maxDelay)
	}

	m.expire(ctx)
	return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, lastErr, "credential refresh attempts exhausted")
}

func (m *RefreshManager) expire(ctx context.Context) {
	m.logg.Warn(ctx, "session expired, local credentials are no longer valid")
	if m.onSessionExpired != nil {
		m.onSessionExpired(ctx)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}
