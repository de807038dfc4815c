package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/api/middleware"
	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/domain/mocks"
	"github.com/V4T54L/tabletop/internal/pkg/config"
	"github.com/V4T54L/tabletop/internal/pkg/token"
	"github.com/V4T54L/tabletop/internal/usecase"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	admin   http.Handler
	store   *mocks.MemoryStore
	apiKey  string
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := mocks.NewMemoryStore()
	reg := prometheus.NewRegistry()
	m := metrics.NewAPIMetrics(reg)
	audit := usecase.NopAuditRecorder{}
	issuer := token.NewIssuer("test-secret", time.Hour)
	resolver := usecase.NewTenantResolver(store.Tenants(), logger, time.Minute, m)
	menu := usecase.NewMenuService(store.Menu(), usecase.NewCodeGenerator(store.Counters(), store.Menu()), audit, logger)
	admin := usecase.NewAdminUseCase(store, &mocks.MockAuditStreamAdmin{StatsResult: &domain.AuditStreamStats{Length: 7}}, resolver, "audit-relays", logger)

	svc := Services{
		Provisioner:  usecase.NewProvisioner(store, audit, logger, m),
		Login:        usecase.NewLoginService(store, issuer, audit, logger, m),
		Menu:         menu,
		Users:        usecase.NewUserService(store.Users(), store.Directory(), audit, logger),
		Settings:     usecase.NewSettingsService(store.Settings(), audit, logger),
		Admin:        admin,
		Resolver:     resolver,
		Issuer:       issuer,
		LoginLimiter: middleware.NewIPRateLimiter(600, 100),
	}
	return &testServer{
		t:       t,
		handler: NewRouter(cfg, logger, m, svc),
		admin:   NewAdminRouter(admin, reg, logger),
		store:   store,
	}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, s.apiKey)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *testServer) provision() {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/instances/create", map[string]string{
		"companyName": "ACME Foods",
		"companyId":   "ACME",
		"userPhone":   "555",
		"userName":    "Alice",
		"password":    token.Digest("secret"),
	})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())
	result := decode[usecase.ProvisionResult](s.t, rr)
	require.True(s.t, strings.HasPrefix(result.APIKey, "acmefood_"), result.APIKey)
	require.Empty(s.t, result.FailedDatasets)
	s.apiKey = result.APIKey
}

func TestRouter_ProvisionAndLogin(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	s.provision()
	apiKey := s.apiKey
	s.apiKey = ""

	rr := s.do(http.MethodPost, "/login/check", map[string]string{"userPhone": "555", "companyId": "ACME"})
	require.Equal(t, http.StatusOK, rr.Code)
	identity := decode[usecase.LoginIdentity](t, rr)
	assert.Equal(t, apiKey, identity.APIKey)
	assert.Equal(t, "Alice", identity.UserName)

	rr = s.do(http.MethodPost, "/login/check", map[string]string{"userPhone": "999", "companyId": "ACME"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/login/complete", map[string]string{"userPhone": "555", "companyId": "ACME", "password": token.Digest("wrong")})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rr.Body.String())

	rr = s.do(http.MethodPost, "/login/complete", map[string]string{"userPhone": "555", "companyId": "ACME", "password": token.Digest("secret")})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	session := decode[struct {
		Token    string         `json:"token"`
		UserData map[string]any `json:"userData"`
	}](t, rr)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, domain.RoleAdmin, session.UserData["userRole"])
	assert.NotContains(t, session.UserData, "password")
}

func TestRouter_ProvisionValidation(t *testing.T) {
	s := newTestServer(t, &config.Config{})

	rr := s.do(http.MethodPost, "/instances/create", map[string]string{"companyName": "ACME"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/instances/create", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	s.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, bad.Body.String())
}

func TestRouter_TenantKeyRequired(t *testing.T) {
	s := newTestServer(t, &config.Config{})

	rr := s.do(http.MethodGet, "/menu", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodGet, "/menu", nil, middleware.APIKeyHeader, "ghost_0000")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_DefaultAPIKey(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	s.provision()

	cfg := &config.Config{DefaultAPIKey: s.apiKey}
	logger := zap.NewNop()
	resolver := usecase.NewTenantResolver(s.store.Tenants(), logger, time.Minute, nil)
	h := NewRouter(cfg, logger, nil, Services{
		Menu:     usecase.NewMenuService(s.store.Menu(), usecase.NewCodeGenerator(s.store.Counters(), s.store.Menu()), usecase.NopAuditRecorder{}, logger),
		Resolver: resolver,
		Issuer:   token.NewIssuer("x", time.Hour),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/menu", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestRouter_LoginLimitIgnoresForwardedHeaders(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	logger := zap.NewNop()
	issuer := token.NewIssuer("x", time.Hour)
	newHandler := func(cfg *config.Config) http.Handler {
		return NewRouter(cfg, logger, nil, Services{
			Login:        usecase.NewLoginService(s.store, issuer, usecase.NopAuditRecorder{}, logger, nil),
			Issuer:       issuer,
			LoginLimiter: middleware.NewIPRateLimiter(1, 1),
		})
	}
	limited := func(h http.Handler, remoteAddr string, forwarded func(i int) string) int {
		n := 0
		for i := 0; i < 20; i++ {
			req := httptest.NewRequest(http.MethodPost, "/login/check", strings.NewReader(`{"userPhone":"1","companyId":"X"}`))
			req.RemoteAddr = remoteAddr
			req.Header.Set("X-Forwarded-For", forwarded(i))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code == http.StatusTooManyRequests {
				n++
			}
		}
		return n
	}
	rotating := func(i int) string { return fmt.Sprintf("198.51.100.%d", i+1) }

	assert.Equal(t, 19, limited(newHandler(&config.Config{}), "203.0.113.7:4000", rotating),
		"untrusted peers are limited by socket address")

	behindProxy := newHandler(&config.Config{TrustedProxies: []string{"10.0.0.0/8"}})
	assert.Equal(t, 0, limited(behindProxy, "10.0.0.2:4000", rotating),
		"distinct clients behind a trusted proxy get their own bucket")
	assert.Equal(t, 19, limited(behindProxy, "10.0.0.2:4000", func(int) string { return "198.51.100.200" }))
}

func TestRouter_Menu(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	s.provision()

	rr := s.do(http.MethodGet, "/menu", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = s.do(http.MethodPost, "/menu", map[string]any{"itemName": "Masala Tea", "Category": "Drinks", "MRP": "25.50"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tea := decode[domain.MenuItem](t, rr)
	assert.Equal(t, "1001", tea.ItemCode)
	assert.Equal(t, 25.5, tea.MRP)

	rr = s.do(http.MethodPost, "/menu", map[string]any{"itemName": "Masala Tea", "Category": "Drinks", "MRP": 30})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPost, "/menu", map[string]any{"itemName": "Free Water", "MRP": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPost, "/menu", map[string]any{"itemName": "Samosa", "Category": "Snacks", "MRP": 15})
	require.Equal(t, http.StatusCreated, rr.Code)
	samosa := decode[domain.MenuItem](t, rr)
	assert.Equal(t, "1002", samosa.ItemCode)

	rr = s.do(http.MethodGet, "/menu/category/Drinks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.MenuItem](t, rr), 1)

	rr = s.do(http.MethodGet, "/menu/check-name?name=Samosa", nil)
	assert.JSONEq(t, `{"exists":true}`, rr.Body.String())
	rr = s.do(http.MethodGet, "/menu/check-name?name=Samosa&excludeId="+samosa.ID, nil)
	assert.JSONEq(t, `{"exists":false}`, rr.Body.String())
	rr = s.do(http.MethodGet, "/menu/check-code?code=1001", nil)
	assert.JSONEq(t, `{"exists":true}`, rr.Body.String())

	rr = s.do(http.MethodGet, "/settings/generate-code", nil)
	assert.JSONEq(t, `{"code":"1003"}`, rr.Body.String())

	rr = s.do(http.MethodPut, "/menu/"+tea.ID, map[string]any{"MRP": "30"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 30.0, decode[domain.MenuItem](t, rr).MRP)

	rr = s.do(http.MethodPut, "/menu/"+tea.ID, map[string]any{"itemName": "Samosa"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodDelete, "/menu/"+tea.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(http.MethodDelete, "/menu/"+tea.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Settings(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	s.provision()

	rr := s.do(http.MethodGet, "/settings/catalog", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	doc := decode[map[string]any](t, rr)
	assert.Equal(t, true, doc["itemDelete"])
	assert.Equal(t, s.apiKey, doc["apiKey"])

	rr = s.do(http.MethodPut, "/settings/catalog", map[string]any{"itemDelete": false, "apiKey": s.apiKey})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	doc = decode[map[string]any](t, rr)
	assert.Equal(t, false, doc["itemDelete"])
	assert.Equal(t, true, doc["itemEdit"])

	rr = s.do(http.MethodGet, "/settings/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Users(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	s.provision()

	rr := s.do(http.MethodPost, "/users", map[string]string{"userName": "Bob", "userPhone": "777", "userRole": "Waiter", "password": token.Digest("pw")})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	bob := decode[domain.User](t, rr)

	rr = s.do(http.MethodPost, "/users", map[string]string{"userName": "Bobby", "userPhone": "777", "userRole": "Chef"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodGet, "/users?role=Waiter", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.User](t, rr), 1)

	rr = s.do(http.MethodGet, "/users?status=active&page=1&pageSize=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[domain.UserPage](t, rr)
	assert.EqualValues(t, 2, page.Total)
	assert.EqualValues(t, 2, page.TotalPages)
	assert.Len(t, page.Users, 1)

	rr = s.do(http.MethodGet, "/users?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodDelete, "/users/"+bob.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[domain.User](t, rr).IsDeleted)

	rr = s.do(http.MethodGet, "/users/export/csv?status=deleted", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Name,Phone Number,Email,Role,User Status,Created Date,Deleted Date", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Bob,777,N/A,Waiter,Deleted,"), lines[1])

	rr = s.do(http.MethodPost, "/users/"+bob.ID+"/re-enable", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.False(t, decode[domain.User](t, rr).IsDeleted)

	rr = s.do(http.MethodPost, "/users/"+bob.ID+"/re-enable", map[string]string{"userRole": "Manager"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Manager", decode[domain.User](t, rr).UserRole)

	rr = s.do(http.MethodDelete, "/users/"+bob.ID+"/permanent", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(http.MethodGet, "/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	s.apiKey = ""
	rr = s.do(http.MethodPost, "/login/check", map[string]string{"userPhone": "777", "companyId": "ACME"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_RequireSessionToken(t *testing.T) {
	s := newTestServer(t, &config.Config{RequireSessionToken: true})
	s.provision()

	rr := s.do(http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/login/complete", map[string]string{"userPhone": "555", "companyId": "ACME", "password": token.Digest("secret")})
	require.Equal(t, http.StatusOK, rr.Code)
	session := decode[map[string]any](t, rr)

	rr = s.do(http.MethodGet, "/users", nil, "Authorization", "Bearer "+session["token"].(string))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_Gzip(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	s.provision()
	for i := 0; i < 40; i++ {
		rr := s.do(http.MethodPost, "/users", map[string]string{
			"userName":  "Staff member with a reasonably long name",
			"userPhone": "100" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			"userRole":  "Waiter",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := s.do(http.MethodGet, "/users", nil, "Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	var users []domain.User
	require.NoError(t, json.NewDecoder(zr).Decode(&users))
	assert.Len(t, users, 41)
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t, &config.Config{CORSAllowedOrigins: []string{"https://admin.example.com"}})

	rr := s.do(http.MethodOptions, "/menu", nil,
		"Origin", "https://admin.example.com",
		"Access-Control-Request-Method", http.MethodPost,
		"Access-Control-Request-Headers", "X-API-Key",
	)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://admin.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = s.do(http.MethodOptions, "/menu", nil,
		"Origin", "https://evil.example.com",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminRouter(t *testing.T) {
	s := newTestServer(t, &config.Config{})
	s.provision()

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		rr := httptest.NewRecorder()
		s.admin.ServeHTTP(rr, httptest.NewRequest(method, path, reader))
		return rr
	}

	rr := serve(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = serve(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tabletop_tenant_provisioned_total")

	rr = serve(http.MethodPut, "/admin/tenants/"+s.apiKey+"/status", `{"status":"suspended"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/menu", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(http.MethodPut, "/admin/tenants/"+s.apiKey+"/status", `{"status":"paused"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(http.MethodGet, "/admin/tenants/ghost_0000", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(http.MethodGet, "/admin/audit/stream", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"length":7`)

	rr = serve(http.MethodPost, "/admin/audit/stream/trim", `{"maxlen":0}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
