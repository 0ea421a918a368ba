package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"teampower/internal/core"
	"teampower/internal/export"
	"teampower/internal/ledger"
	"teampower/internal/ledger/memory"
	"teampower/internal/rollup"
	"teampower/internal/services"
	"teampower/internal/session"
)

type testEnv struct {
	srv      *Server
	store    *memory.Store
	sessions *session.Manager
}

func newTestEnv(t *testing.T, seed ...core.Transaction) *testEnv {
	t.Helper()
	store := memory.New(seed...)
	return newTestEnvWithStore(t, store, store)
}

func newTestEnvWithStore(t *testing.T, store ledger.Store, mem *memory.Store) *testEnv {
	t.Helper()
	dir := session.NewDirectoryWithCost(bcrypt.MinCost)
	require.NoError(t, dir.Add("alice", session.RoleAdmin, "admin-pass"))
	require.NoError(t, dir.Add("bob", session.RoleUser, "user-pass"))
	sessions := session.NewManager(dir, time.Hour)

	srv := NewServer(":0", Deps{
		Ledger:             services.NewLedgerService(store, nil, nil),
		Dashboard:          services.NewDashboardService(store, rollup.NewEngine(rollup.NewWindow(2025)), nil, nil),
		Sessions:           sessions,
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: mem, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, user, pass string) string {
	t.Helper()
	s, err := e.sessions.Login(user, pass)
	require.NoError(t, err)
	return s.Token
}

func record(t *testing.T, date, amount string, c core.Category, typ core.Type) core.Transaction {
	t.Helper()
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	a, err := core.ParseAmount(amount)
	require.NoError(t, err)
	return core.Transaction{
		Date: d, CostCenterProject: "CCP1", CostCenterSOW: "CCS1",
		SOWNumber: "1001", PONumber: "2001", Amount: a, Category: c, Type: typ,
	}
}

const validBody = `{"date":"2025-01-05","cost_center_project":"CCP1","cost_center_sow":"CCS1","sow_number":"1001","po":"2001","amount":"100","category":"Budget","type":"OPEX"}`

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestDashboardEmptyLedger(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/dashboard", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Year int `json:"year"`
		KPIs struct {
			TotalBudget string `json:"total_budget"`
			FundingGap  string `json:"funding_gap"`
		} `json:"kpis"`
		YTD struct {
			Categories []string          `json:"categories"`
			Points     []json.RawMessage `json:"points"`
		} `json:"ytd"`
		Monthly []json.RawMessage `json:"monthly"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2025, body.Year)
	assert.Equal(t, "0", body.KPIs.TotalBudget)
	assert.Equal(t, "0", body.KPIs.FundingGap)
	assert.Equal(t, []string{"Budget", "Planned", "Consumed"}, body.YTD.Categories)
	assert.Len(t, body.YTD.Points, 365)
	assert.Len(t, body.Monthly, 12)
}

func TestSingleViews(t *testing.T) {
	env := newTestEnv(t,
		record(t, "2025-01-05", "100", core.Budget, core.OPEX),
		record(t, "2025-02-01", "30", core.Consumed, core.CAPEX),
	)

	rec := env.do(t, http.MethodGet, "/api/kpis", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var kpis map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kpis))
	assert.Equal(t, "100", kpis["total_budget"])
	assert.Equal(t, "-70", kpis["funding_gap"])

	rec = env.do(t, http.MethodGet, "/api/monthly", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var monthly []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &monthly))
	require.Len(t, monthly, 12)
	assert.Equal(t, "2025-01", monthly[0]["month"])
	assert.Equal(t, "100", monthly[0]["OPEX"])
	assert.Equal(t, "30", monthly[1]["CAPEX"])

	rec = env.do(t, http.MethodGet, "/api/ytd", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ytd struct {
		Points []struct {
			Date   string            `json:"date"`
			Values map[string]string `json:"values"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ytd))
	require.Len(t, ytd.Points, 365)
	assert.Equal(t, "0", ytd.Points[3].Values["Budget"])
	assert.Equal(t, "100", ytd.Points[4].Values["Budget"])
	assert.Equal(t, "2025-12-31", ytd.Points[364].Date)
}

func TestAppendRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/transactions", validBody, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/transactions", validBody, env.login(t, "bob", "user-pass"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/transactions", validBody, env.login(t, "alice", "admin-pass"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp appendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)

	items, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, core.Budget, items[0].Category)
}

func TestAppendThenDashboardReflectsRecord(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "admin-pass")

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/transactions", validBody, token).Code)

	rec := env.do(t, http.MethodGet, "/api/kpis", "", "")
	var kpis map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kpis))
	assert.Equal(t, "100", kpis["total_budget"])
	assert.Equal(t, "-100", kpis["funding_gap"])
}

func TestAppendValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "admin-pass")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"unknown field", `{"foo":1}`, http.StatusBadRequest},
		{"bad amount", strings.Replace(validBody, `"100"`, `"abc"`, 1), http.StatusUnprocessableEntity},
		{"amount not a number", strings.Replace(validBody, `"100"`, `true`, 1), http.StatusUnprocessableEntity},
		{"bad date", strings.Replace(validBody, "2025-01-05", "05/01/2025", 1), http.StatusUnprocessableEntity},
		{"missing sow", strings.Replace(validBody, `"1001"`, `" "`, 1), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/transactions", tt.body, token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	items, _ := env.store.ListAll(context.Background())
	assert.Empty(t, items)
}

func TestAppendAcceptsNumericAmount(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "admin-pass")

	for _, amount := range []string{`100`, `1250.55`, `-0.1`} {
		body := strings.Replace(validBody, `"100"`, amount, 1)
		rec := env.do(t, http.MethodPost, "/api/transactions", body, token)
		require.Equal(t, http.StatusCreated, rec.Code, "amount %s: %s", amount, rec.Body.String())
	}

	items, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "100", items[0].Amount.String())
	assert.Equal(t, "1250.55", items[1].Amount.String())
	assert.Equal(t, "-0.1", items[2].Amount.String())
}

func TestAppendAcceptsUnknownEnums(t *testing.T) {
	env := newTestEnv(t)
	body := strings.Replace(strings.Replace(validBody, `"Budget"`, `"Reserve"`, 1), `"OPEX"`, `"MISC"`, 1)

	rec := env.do(t, http.MethodPost, "/api/transactions", body, env.login(t, "alice", "admin-pass"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/monthly", "", "")
	var monthly []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &monthly))
	assert.Equal(t, "0", monthly[0]["OPEX"])
}

func TestListStatsAndExport(t *testing.T) {
	env := newTestEnv(t,
		record(t, "2025-01-05", "100", core.Budget, core.OPEX),
		record(t, "2025-03-01", "-20.5", core.Consumed, core.CAPEX),
	)

	rec := env.do(t, http.MethodGet, "/api/transactions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list transactionList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "2025-03-01", list.Items[0].Date.String(), "newest first")

	rec = env.do(t, http.MethodGet, "/api/transactions/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats["count"])
	assert.Equal(t, "79.5", stats["total_amount"])
	assert.Equal(t, "2025-03-01", stats["latest_date"])

	rec = env.do(t, http.MethodGet, "/api/transactions.csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions-2025.csv")
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, "2025-01-05", rows[1][0])
}

func TestEmptyListIsArray(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/transactions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())
}

type brokenStore struct{}

func (brokenStore) Append(context.Context, core.Transaction) (string, error) {
	return "", fmt.Errorf("insert: %w", ledger.ErrStoreUnavailable)
}

func (brokenStore) ListAll(context.Context) ([]core.Transaction, error) {
	return nil, fmt.Errorf("select: %w", ledger.ErrStoreUnavailable)
}

func TestStoreUnavailable(t *testing.T) {
	env := newTestEnvWithStore(t, brokenStore{}, nil)

	for _, path := range []string{"/api/dashboard", "/api/kpis", "/api/ytd", "/api/monthly", "/api/transactions", "/api/transactions/stats", "/api/transactions.csv"} {
		rec := env.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "select", "storage details must not leak")
	}

	rec := env.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/transactions", validBody, env.login(t, "alice", "admin-pass"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoginLogoutFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", `{"username":"alice","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/login", `{"username":"alice","password":"admin-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, session.RoleAdmin, login.Role)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, login.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// The cookie alone authenticates browser requests.
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(cookie)
	prof := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(prof, req)
	require.Equal(t, http.StatusOK, prof.Code)
	assert.JSONEq(t, `{"username":"alice","role":"admin"}`, prof.Body.String())

	rec = env.do(t, http.MethodPost, "/api/logout", "", login.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/profile", "", login.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "bob", "user-pass")

	rec := env.do(t, http.MethodPost, "/api/profile/password", `{"current_password":"nope","new_password":"next"}`, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/profile/password", `{"current_password":"user-pass","new_password":""}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/profile/password", `{"current_password":"user-pass","new_password":"next-pass"}`, token)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := env.sessions.Login("bob", "user-pass")
	assert.True(t, errors.Is(err, session.ErrInvalidCredentials))
	_, err = env.sessions.Login("bob", "next-pass")
	assert.NoError(t, err)
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "alice", "admin-pass")
	user := env.login(t, "bob", "user-pass")

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/admin/users", "", user).Code)

	rec := env.do(t, http.MethodGet, "/api/admin/users", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"username":"alice","role":"admin"},{"username":"bob","role":"user"}]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/admin/users/role", `{"username":"bob","role":"root"}`, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/users/role", `{"username":"carol","role":"admin"}`, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/users/role", `{"username":"bob","role":"admin"}`, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Promotion applies to bob's open session.
	rec = env.do(t, http.MethodPost, "/api/transactions", validBody, user)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodDelete, "/api/transactions", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimitSkipsHealthChecks(t *testing.T) {
	store := memory.New()
	dir := session.NewDirectoryWithCost(bcrypt.MinCost)
	srv := NewServer(":0", Deps{
		Ledger:             services.NewLedgerService(store, nil, nil),
		Dashboard:          services.NewDashboardService(store, rollup.NewEngine(rollup.NewWindow(2025)), nil, nil),
		Sessions:           session.NewManager(dir, time.Hour),
		RateLimitPerMinute: 2,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	serve := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("/api/kpis"))
	assert.Equal(t, http.StatusOK, serve("/api/kpis"))
	assert.Equal(t, http.StatusTooManyRequests, serve("/api/kpis"))
	assert.Equal(t, http.StatusOK, serve("/healthz"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrMalformedRecord, http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", core.ErrInvalidDate), http.StatusUnprocessableEntity},
		{core.ErrMissingField, http.StatusUnprocessableEntity},
		{fmt.Errorf("append: %w", ledger.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{ledger.ErrNotFound, http.StatusNotFound},
		{session.ErrUnknownUser, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
