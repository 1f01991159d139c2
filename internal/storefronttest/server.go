// Package storefronttest runs an in-process storefront API for tests. It
// serves the auth, cart, and product routes the client depends on, with
// knobs for expiring credentials and scripting failures.
package storefronttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// Seed credentials every server accepts.
const (
	SeedEmail    = "buyer@example.com"
	SeedPassword = "pf-storefront-dev"
)

// Cookie names the storefront API uses for credentials.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

var signingSecret = []byte("storefronttest-signing-secret")

// accessClaims carries a version so the server can invalidate every
// outstanding access token at once without touching refresh tokens.
type accessClaims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}

type cartLine struct {
	id        string
	productID int64
	quantity  int
}

type scriptedFailure struct {
	remaining int
	status    int
	message   string
}

// Server is the fake storefront API.
type Server struct {
	http *httptest.Server

	mu            sync.Mutex
	userID        string
	tokenVersion  int
	refreshTokens map[string]struct{}

	products     map[int64]types.Product
	productOrder []int64

	cartID        string
	lines         []*cartLine
	cartUpdatedAt time.Time

	refreshCalls int
	mergeCalls   int
	refreshDelay time.Duration
	failRefresh  scriptedFailure
	failMerge    scriptedFailure
	lastMerge    []types.MergeItem
}

// New starts a fake storefront API and shuts it down with the test.
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		userID:        uuid.NewString(),
		refreshTokens: map[string]struct{}{},
	}
	s.seedProducts()

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Post("/refresh", s.handleRefresh)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handleProductList)
			r.Get("/{productID}", s.handleProductShow)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleCartFetch)
			r.Post("/", s.handleCartAdd)
			r.Delete("/", s.handleCartClear)
			r.Get("/count", s.handleCartCount)
			r.Post("/merge", s.handleCartMerge)
			r.Patch("/{itemID}", s.handleCartUpdate)
			r.Delete("/{itemID}", s.handleCartRemove)
		})
	})

	s.http = httptest.NewServer(r)
	t.Cleanup(s.http.Close)
	return s
}

// URL is the server's base URL.
func (s *Server) URL() string {
	return s.http.URL
}

func int64Ptr(v int64) *int64 {
	return &v
}

func (s *Server) seedProducts() {
	seeded := []types.Product{
		{ID: 1, Name: "OG Kush Eighth", Description: "Indica-dominant classic", OriginalPriceCents: int64Ptr(4500)},
		{ID: 2, Name: "Blue Dream Cartridge", OriginalPriceCents: int64Ptr(6000), DiscountedPriceCents: int64Ptr(4900)},
		{ID: 3, Name: "Promo Sticker Pack"},
	}
	s.products = make(map[int64]types.Product, len(seeded))
	for _, p := range seeded {
		s.products[p.ID] = p
		s.productOrder = append(s.productOrder, p.ID)
	}
}

// InvalidateAccess expires every outstanding access token while keeping
// refresh tokens valid, so the next API call 401s and refresh recovers it.
func (s *Server) InvalidateAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenVersion++
}

// RevokeSessions invalidates access and refresh tokens both; the next
// refresh attempt is rejected as unauthorized.
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenVersion++
	s.refreshTokens = map[string]struct{}{}
}

// FailRefresh makes the next n refresh calls answer with the given status.
func (s *Server) FailRefresh(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = scriptedFailure{remaining: n, status: status, message: "refresh temporarily unavailable"}
}

// RefreshDelay makes every refresh call take at least d, widening the window
// concurrent requests can pile into one refresh cycle.
func (s *Server) RefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// FailMerge makes the next n merge calls answer with the given status and message.
func (s *Server) FailMerge(n, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMerge = scriptedFailure{remaining: n, status: status, message: message}
}

// RefreshCalls reports how many times the refresh endpoint was hit.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// MergeCalls reports how many times the merge endpoint was hit.
func (s *Server) MergeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeCalls
}

// LastMerge returns the items of the most recent merge payload.
func (s *Server) LastMerge() []types.MergeItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.MergeItem(nil), s.lastMerge...)
}

// Product returns a seeded catalog snapshot by id.
func (s *Server) Product(id int64) (types.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func decodeBody(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func (s *Server) mintAccessToken(now time.Time) (string, error) {
	claims := accessClaims{
		Version: s.tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingSecret)
}

func (s *Server) parseAccessToken(raw string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return signingSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// issueSession mints both tokens and sets their cookies. Callers hold the lock.
func (s *Server) issueSession(w http.ResponseWriter) error {
	now := time.Now().UTC()

	accessToken, err := s.mintAccessToken(now)
	if err != nil {
		return err
	}
	refreshToken := uuid.NewString()
	s.refreshTokens[refreshToken] = struct{}{}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Expires:  now.Add(accessTokenTTL),
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		Expires:  now.Add(refreshTokenTTL),
		HttpOnly: true,
	})
	return nil
}

func expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if body.Email != SeedEmail || body.Password != SeedPassword {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.issueSession(w); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to mint tokens")
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"id":         s.userID,
			"email":      SeedEmail,
			"first_name": "Casey",
			"last_name":  "Alvarez",
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		delete(s.refreshTokens, cookie.Value)
	}
	s.mu.Unlock()

	expireCookie(w, AccessTokenCookie)
	expireCookie(w, RefreshTokenCookie)
	writeData(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.refreshDelay
	s.mu.Unlock()
	// The delay happens outside the lock so other routes keep answering.
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshCalls++
	if s.failRefresh.remaining > 0 {
		s.failRefresh.remaining--
		writeError(w, s.failRefresh.status, "SERVER_ERROR", s.failRefresh.message)
		return
	}

	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token")
		return
	}
	if _, ok := s.refreshTokens[cookie.Value]; !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token")
		return
	}

	// Rotation: the presented token dies with this request.
	delete(s.refreshTokens, cookie.Value)
	if err := s.issueSession(w); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to mint tokens")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AccessTokenCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := s.parseAccessToken(cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		s.mu.Lock()
		valid := claims.Version == s.tokenVersion
		s.mu.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// cartViewLocked renders the cart in its wire shape. Callers hold the lock.
func (s *Server) cartViewLocked() map[string]any {
	items := make([]map[string]any, 0, len(s.lines))
	var subtotal int64
	for _, line := range s.lines {
		product := s.products[line.productID]
		unit := product.UnitPriceCents()
		total := unit * int64(line.quantity)
		subtotal += total
		items = append(items, map[string]any{
			"id":               line.id,
			"product_id":       line.productID,
			"name":             product.Name,
			"quantity":         line.quantity,
			"unit_price_cents": unit,
			"line_total_cents": total,
		})
	}
	return map[string]any{
		"id":             s.cartID,
		"items":          items,
		"subtotal_cents": subtotal,
		"updated_at":     s.cartUpdatedAt,
	}
}

// ensureCartLocked lazily creates the user's cart on first write.
func (s *Server) ensureCartLocked() {
	if s.cartID == "" {
		s.cartID = uuid.NewString()
	}
	s.cartUpdatedAt = time.Now().UTC()
}

func (s *Server) addLineLocked(productID int64, quantity int) {
	for _, line := range s.lines {
		if line.productID == productID {
			line.quantity += quantity
			return
		}
	}
	s.lines = append(s.lines, &cartLine{id: uuid.NewString(), productID: productID, quantity: quantity})
}

func (s *Server) handleCartFetch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cartID == "" {
		writeData(w, http.StatusOK, nil)
		return
	}
	writeData(w, http.StatusOK, s.cartViewLocked())
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if body.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "quantity must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[body.ProductID]; !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	s.ensureCartLocked()
	s.addLineLocked(body.ProductID, body.Quantity)
	writeData(w, http.StatusOK, s.cartViewLocked())
}

func (s *Server) handleCartCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, line := range s.lines {
		count += line.quantity
	}
	writeData(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if body.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "quantity must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range s.lines {
		if line.id == itemID {
			line.quantity = body.Quantity
			s.cartUpdatedAt = time.Now().UTC()
			writeData(w, http.StatusOK, s.cartViewLocked())
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found")
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, line := range s.lines {
		if line.id == itemID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.cartUpdatedAt = time.Now().UTC()
			writeData(w, http.StatusOK, s.cartViewLocked())
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found")
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.ensureCartLocked()
	writeData(w, http.StatusOK, s.cartViewLocked())
}

func (s *Server) handleCartMerge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []types.MergeItem `json:"items"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mergeCalls++
	if s.failMerge.remaining > 0 {
		s.failMerge.remaining--
		writeError(w, s.failMerge.status, "SERVER_ERROR", s.failMerge.message)
		return
	}

	for _, item := range body.Items {
		if item.Quantity <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "quantity must be positive")
			return
		}
		if _, ok := s.products[item.ProductID]; !ok {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown product in merge payload")
			return
		}
	}

	s.lastMerge = append([]types.MergeItem(nil), body.Items...)
	s.ensureCartLocked()
	for _, item := range body.Items {
		s.addLineLocked(item.ProductID, item.Quantity)
	}
	writeData(w, http.StatusOK, s.cartViewLocked())
}

func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 25)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}
	if perPage > 100 {
		perPage = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(s.productOrder) {
		start = len(s.productOrder)
	}
	if end > len(s.productOrder) {
		end = len(s.productOrder)
	}

	products := make([]types.Product, 0, end-start)
	for _, id := range s.productOrder[start:end] {
		products = append(products, s.products[id])
	}

	writeData(w, http.StatusOK, map[string]any{
		"products": products,
		"page":     page,
		"per_page": perPage,
		"total":    len(s.productOrder),
	})
}

func (s *Server) handleProductShow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid product id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	writeData(w, http.StatusOK, product)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
