package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// storedCookie is the persisted subset of http.Cookie needed to resume a
// session across process runs.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

func (c storedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && now.After(c.Expires)
}

// Jar is a cookie jar scoped to the storefront API host, persisted through
// the local state database so sessions survive between commands. Cookies for
// any other host are discarded.
type Jar struct {
	mu      sync.Mutex
	store   *boltstore.Client
	logg    *logger.Logger
	host    string
	cookies map[string]storedCookie
}

func NewJar(store *boltstore.Client, baseURL string, logg *logger.Logger) (*Jar, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}

	jar := &Jar{
		store:   store,
		logg:    logg,
		host:    parsed.Host,
		cookies: map[string]storedCookie{},
	}
	if err := jar.load(); err != nil {
		return nil, err
	}
	return jar, nil
}

func (j *Jar) load() error {
	raw, err := j.store.Get(context.Background(), boltstore.BucketCookies, []byte(j.host))
	if errors.Is(err, boltstore.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading cookies: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		// Unreadable cookie state is treated as absent.
		j.logg.Warn(context.Background(), "stored cookies are unreadable, starting with an empty jar")
		return nil
	}

	now := time.Now()
	for _, cookie := range stored {
		if cookie.expired(now) {
			continue
		}
		j.cookies[cookie.Name] = cookie
	}
	return nil
}

// SetCookies implements http.CookieJar. Expired values and max-age deletions
// drop the cookie; everything else is written through to the state database.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if u == nil || u.Host != j.host || len(cookies) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	for _, cookie := range cookies {
		if cookie == nil || cookie.Name == "" {
			continue
		}

		expires := cookie.Expires
		if cookie.MaxAge > 0 {
			expires = now.Add(time.Duration(cookie.MaxAge) * time.Second)
		}
		if cookie.MaxAge < 0 || (!expires.IsZero() && now.After(expires)) {
			delete(j.cookies, cookie.Name)
			continue
		}

		j.cookies[cookie.Name] = storedCookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Expires:  expires,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HttpOnly,
		}
	}

	j.persistLocked()
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	if u == nil || u.Host != j.host {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	result := make([]*http.Cookie, 0, len(j.cookies))
	for _, cookie := range j.cookies {
		if cookie.expired(now) {
			delete(j.cookies, cookie.Name)
			continue
		}
		result = append(result, &http.Cookie{Name: cookie.Name, Value: cookie.Value, Path: cookie.Path})
	}
	sort.Slice(result, func(i, k int) bool { return result[i].Name < result[k].Name })
	return result
}

// Get returns the live value of a named cookie, or false when absent.
func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookie, ok := j.cookies[name]
	if !ok || cookie.expired(time.Now()) {
		return "", false
	}
	return cookie.Value, true
}

// Clear removes every cookie in memory and from the state database.
func (j *Jar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cookies = map[string]storedCookie{}
	return j.store.Delete(ctx, boltstore.BucketCookies, []byte(j.host))
}

// persistLocked writes the jar through to the state database. Persistence is
// best-effort: the in-memory jar keeps serving the session either way.
func (j *Jar) persistLocked() {
	stored := make([]storedCookie, 0, len(j.cookies))
	for _, cookie := range j.cookies {
		stored = append(stored, cookie)
	}
	sort.Slice(stored, func(i, k int) bool { return stored[i].Name < stored[k].Name })

	raw, err := json.Marshal(stored)
	if err != nil {
		j.logg.Warn(context.Background(), "failed to encode cookies for persistence")
		return
	}
	if err := j.store.Put(context.Background(), boltstore.BucketCookies, []byte(j.host), raw); err != nil {
		j.logg.Error(context.Background(), "failed to persist cookies", err)
	}
}
