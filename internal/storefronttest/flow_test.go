package storefronttest_test

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-storefront/internal/cart"
	"github.com/angelmondragon/packfinderz-storefront/internal/catalog"
	"github.com/angelmondragon/packfinderz-storefront/internal/localcart"
	"github.com/angelmondragon/packfinderz-storefront/internal/merge"
	"github.com/angelmondragon/packfinderz-storefront/internal/session"
	"github.com/angelmondragon/packfinderz-storefront/internal/storefronttest"
	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/httpclient"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// stack wires the full client the way cmd/storefront does, pointed at the
// fake API.
type stack struct {
	server  *storefronttest.Server
	local   localcart.Service
	cart    cart.Service
	catalog catalog.Service
	session session.Service
	marker  merge.MarkerStore
	guard   *merge.Guard
}

func newStack(t *testing.T) *stack {
	t.Helper()

	server := storefronttest.New(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	store, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	jar, err := httpclient.NewJar(store, server.URL(), logg)
	require.NoError(t, err)
	httpC := &http.Client{Timeout: 5 * time.Second, Jar: jar}

	sessionStore, err := session.NewStore(store, logg)
	require.NoError(t, err)
	markerStore, err := merge.NewMarkerStore(store)
	require.NoError(t, err)

	refresh, err := httpclient.NewRefreshManager(httpclient.RefreshManagerParams{
		Refresh:     httpclient.RefreshRequest(httpC, server.URL()),
		Logger:      logg,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		OnSessionExpired: func(ctx context.Context) {
			_ = sessionStore.Delete(ctx)
			_ = markerStore.Clear(ctx)
		},
	})
	require.NoError(t, err)

	client, err := httpclient.New(httpclient.Params{
		BaseURL:    server.URL(),
		Logger:     logg,
		HTTPClient: httpC,
		Jar:        jar,
		Refresh:    refresh,
	})
	require.NoError(t, err)

	localStore, err := localcart.NewStore(store, logg)
	require.NoError(t, err)
	local, err := localcart.NewService(localStore, logg)
	require.NoError(t, err)

	cartSvc, err := cart.NewService(client, logg)
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(client, logg)
	require.NoError(t, err)

	sessionSvc, err := session.NewService(session.ServiceParams{
		Client: client,
		Store:  sessionStore,
		Marker: markerStore,
		Jar:    jar,
		Logger: logg,
	})
	require.NoError(t, err)

	guard, err := merge.NewGuard(merge.GuardParams{
		Local:   local,
		Server:  cartSvc,
		Session: sessionSvc,
		Marker:  markerStore,
		Logger:  logg,
	})
	require.NoError(t, err)

	return &stack{
		server:  server,
		local:   local,
		cart:    cartSvc,
		catalog: catalogSvc,
		session: sessionSvc,
		marker:  markerStore,
		guard:   guard,
	}
}

func (st *stack) login(t *testing.T, ctx context.Context) *session.Record {
	t.Helper()

	record, err := st.session.Login(ctx, session.LoginInput{
		Email:    storefronttest.SeedEmail,
		Password: storefronttest.SeedPassword,
	})
	require.NoError(t, err)
	return record
}

// addLocal pulls the catalog snapshot the way the CLI does before writing to
// the local cart.
func (st *stack) addLocal(t *testing.T, ctx context.Context, productID int64, quantity int) {
	t.Helper()

	product, err := st.catalog.Get(ctx, productID)
	require.NoError(t, err)
	require.NoError(t, st.local.Add(ctx, *product, quantity))
}

func TestLoginMergeMovesLocalCart(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.addLocal(t, ctx, 1, 2)
	st.addLocal(t, ctx, 2, 1)
	st.addLocal(t, ctx, 3, 1)

	st.login(t, ctx)

	result, err := st.guard.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, merge.StatusMerged, result.Status)
	assert.Equal(t, 3, result.ItemsMerged)

	serverCart, err := st.cart.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, serverCart)
	require.Len(t, serverCart.Items, 3)
	// 2 * 4500 original, 1 * 4900 discounted, 1 * 0 unpriced promo.
	assert.Equal(t, int64(2*4500+4900), serverCart.SubtotalCents)

	localCount, err := st.local.ItemCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, localCount)

	// A second attempt in the same session is a no-op.
	result, err = st.guard.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, merge.StatusAlreadyMerged, result.Status)
	assert.Equal(t, 1, st.server.MergeCalls())
}

func TestMergeFailureKeepsLocalCart(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.addLocal(t, ctx, 1, 2)
	st.login(t, ctx)

	st.server.FailMerge(1, http.StatusServiceUnavailable, "merge temporarily unavailable")

	_, err := st.guard.Run(ctx)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeServer, typed.Code())
	assert.Equal(t, "merge temporarily unavailable", typed.Message())

	localCount, err := st.local.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, localCount, "failed merge must not touch the local cart")

	marked, err := st.marker.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, marked, "failed merge must not set the marker")

	// The next attempt retries and succeeds.
	result, err := st.guard.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, merge.StatusMerged, result.Status)
	assert.Equal(t, 2, st.server.MergeCalls())
}

func TestNewLoginMergesAgain(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.addLocal(t, ctx, 1, 1)
	st.login(t, ctx)

	result, err := st.guard.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, merge.StatusMerged, result.Status)

	require.NoError(t, st.session.Logout(ctx))

	// Items picked while signed out, then a fresh login with a new session id.
	st.addLocal(t, ctx, 2, 1)
	st.login(t, ctx)

	result, err = st.guard.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, merge.StatusMerged, result.Status)
	assert.Equal(t, 2, st.server.MergeCalls())
}

func TestExpiredAccessRefreshesOnceAcrossConcurrentCalls(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.login(t, ctx)
	_, err := st.cart.Add(ctx, 1, 1)
	require.NoError(t, err)

	st.server.InvalidateAccess()
	st.server.RefreshDelay(100 * time.Millisecond)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.cart.Fetch(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, 1, st.server.RefreshCalls(), "concurrent 401s must share one refresh")

	count, err := st.cart.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefreshRetriesTransientFailures(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.login(t, ctx)
	st.server.InvalidateAccess()
	st.server.FailRefresh(1, http.StatusServiceUnavailable)

	serverCart, err := st.cart.Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, serverCart)
	assert.Equal(t, 2, st.server.RefreshCalls(), "first refresh fails, backoff retry succeeds")
}

func TestRevokedSessionExpiresAndClearsLocalState(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.addLocal(t, ctx, 1, 1)
	st.login(t, ctx)

	result, err := st.guard.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, merge.StatusMerged, result.Status)

	st.server.RevokeSessions()

	_, err = st.cart.Fetch(ctx)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeSessionExpired, typed.Code())

	// The expiry hook wipes the session record and the merge marker.
	assert.False(t, st.session.IsAuthenticated(ctx))
	marked, err := st.marker.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, marked)
}

func TestLogoutClearsSessionRecordAndCookies(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.login(t, ctx)
	require.True(t, st.session.IsAuthenticated(ctx))

	_, ok := st.session.TokenExpiry()
	require.True(t, ok, "access cookie should be readable after login")

	require.NoError(t, st.session.Logout(ctx))

	assert.False(t, st.session.IsAuthenticated(ctx))
	_, ok = st.session.TokenExpiry()
	assert.False(t, ok, "access cookie should be gone after logout")
}

func TestTokenExpiryTracksAccessCookie(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	st.login(t, ctx)

	expiry, ok := st.session.TokenExpiry()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiry, time.Minute)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	_, err := st.session.Login(ctx, session.LoginInput{
		Email:    storefronttest.SeedEmail,
		Password: "wrong",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	assert.Equal(t, "invalid credentials", typed.Message())
	assert.False(t, st.session.IsAuthenticated(ctx))
	assert.Equal(t, 0, st.server.RefreshCalls(), "a login 401 must never start a refresh")
}

func TestLoginValidatesInputBeforeNetwork(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	_, err := st.session.Login(ctx, session.LoginInput{Email: "not-an-email", Password: "x"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
