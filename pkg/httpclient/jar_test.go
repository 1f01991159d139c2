package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
)

func newTestJar(t *testing.T, store *boltstore.Client) *Jar {
	t.Helper()
	jar, err := NewJar(store, "https://shop.packfinderz.com", testLogger())
	require.NoError(t, err)
	return jar
}

func apiURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://shop.packfinderz.com/api/v1/cart")
	require.NoError(t, err)
	return u
}

func TestJarPersistsAcrossReopen(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	jar := newTestJar(t, store)
	jar.SetCookies(apiURL(t), []*http.Cookie{
		{Name: "pf_access_token", Value: "token-a", Path: "/", HttpOnly: true},
		{Name: "pf_refresh_token", Value: "token-r", Path: "/api/v1/auth", HttpOnly: true},
	})

	reopened := newTestJar(t, store)
	cookies := reopened.Cookies(apiURL(t))
	require.Len(t, cookies, 2)
	assert.Equal(t, "pf_access_token", cookies[0].Name)
	assert.Equal(t, "token-a", cookies[0].Value)
	assert.Equal(t, "pf_refresh_token", cookies[1].Name)

	value, ok := reopened.Get("pf_refresh_token")
	require.True(t, ok)
	assert.Equal(t, "token-r", value)
}

func TestJarIgnoresForeignHosts(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	jar := newTestJar(t, store)

	other, err := url.Parse("https://evil.example.com/")
	require.NoError(t, err)
	jar.SetCookies(other, []*http.Cookie{{Name: "stolen", Value: "x"}})

	assert.Empty(t, jar.Cookies(apiURL(t)))
	assert.Nil(t, jar.Cookies(other))
}

func TestJarHonorsExpiry(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	jar := newTestJar(t, store)
	jar.SetCookies(apiURL(t), []*http.Cookie{
		{Name: "gone", Value: "x", Expires: time.Now().Add(-time.Hour)},
		{Name: "alive", Value: "y", Expires: time.Now().Add(time.Hour)},
	})

	cookies := jar.Cookies(apiURL(t))
	require.Len(t, cookies, 1)
	assert.Equal(t, "alive", cookies[0].Name)
}

func TestJarMaxAgeDeletion(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	jar := newTestJar(t, store)
	jar.SetCookies(apiURL(t), []*http.Cookie{{Name: "pf_access_token", Value: "tok"}})

	_, ok := jar.Get("pf_access_token")
	require.True(t, ok)

	// Logout-style expiry from the server.
	jar.SetCookies(apiURL(t), []*http.Cookie{{Name: "pf_access_token", Value: "", MaxAge: -1}})

	_, ok = jar.Get("pf_access_token")
	assert.False(t, ok)
}

func TestJarClear(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	jar := newTestJar(t, store)
	jar.SetCookies(apiURL(t), []*http.Cookie{{Name: "pf_access_token", Value: "tok"}})

	require.NoError(t, jar.Clear(context.Background()))
	assert.Empty(t, jar.Cookies(apiURL(t)))

	reopened := newTestJar(t, store)
	assert.Empty(t, reopened.Cookies(apiURL(t)))
}
