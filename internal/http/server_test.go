package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/currency"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/storage/memory"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	dashboards := services.NewDashboardService(store, store, cache.NewLRUCache[services.DashboardView](16, time.Minute))
	svc := Services{
		Expenses:   services.NewExpenseService(store, nil, dashboards),
		Dashboards: dashboards,
		Insights:   services.NewInsightsService(store, store),
		Planner:    services.NewPlannerService(currency.New("₹")),
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	}
	srv, err := NewServer(":0", svc, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = "192.0.2.10:4321"
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, srv *Server, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return do(t, srv, method, target, body, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createUser(t *testing.T, srv *Server, email, role, budget string) core.User {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/users", map[string]string{
		"email": email, "role": role, "budget": budget,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.User](t, rec)
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, srv, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsStoreFailure(t *testing.T) {
	srv, _ := newTestServer(t, Options{Pinger: stubPinger{err: errors.New("db locked")}})

	rec := do(t, srv, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestCreateAndGetUser(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	u := createUser(t, srv, "asha@example.com", "Student", "1200")
	assert.Equal(t, "student", u.Role)
	assert.True(t, u.Budget.Equal(decimal.NewFromInt(1200)))

	rec := do(t, srv, http.MethodGet, "/api/users/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asha@example.com", decode[core.User](t, rec).Email)

	rec = doJSON(t, srv, http.MethodPost, "/api/users", map[string]string{"email": "ASHA@example.com", "role": "student"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUser_Validation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := []struct {
		name    string
		payload map[string]string
		want    string
	}{
		{"bad email", map[string]string{"email": "nobody", "role": "student"}, core.ErrInvalidEmail.Error()},
		{"missing role", map[string]string{"email": "a@example.com"}, core.ErrEmptyRole.Error()},
		{"negative budget", map[string]string{"email": "b@example.com", "role": "student", "budget": "-5"}, core.ErrInvalidBudget.Error()},
		{"grouped budget", map[string]string{"email": "c@example.com", "role": "student", "budget": "1,200"}, core.ErrInvalidBudget.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/users", tt.payload)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, tt.want, decode[errorBody](t, rec).Error)
		})
	}
}

func TestGetUser_Errors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/users/42", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/users/abc", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/users", strings.NewReader("{not json"), "application/json").Code)
}

func TestExpenseLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "ravi@example.com", "professional", "3000")

	form := url.Values{"category": {"Food"}, "amount": {"120.50"}, "date": {"2026-03-01"}, "description": {"lunch"}}
	rec := do(t, srv, http.MethodPost, "/api/users/1/expenses", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Expense](t, rec)
	assert.Equal(t, "/api/users/1/expenses/1", rec.Header().Get("Location"))
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("120.5")))

	rec = doJSON(t, srv, http.MethodPost, "/api/users/1/expenses", map[string]any{
		"category": "Travel", "amount": 79.5, "date": "2026-03-02",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/users/1/expenses", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[services.ExpenseList](t, rec)
	require.Len(t, list.Expenses, 2)
	assert.Equal(t, "Travel", list.Expenses[0].Category, "newest first")
	assert.True(t, list.Total.Equal(decimal.NewFromInt(200)))

	rec = do(t, srv, http.MethodDelete, "/api/users/1/expenses/1", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/users/1/expenses/1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateExpense_Errors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "kim@example.com", "student", "500")

	tests := []struct {
		name    string
		target  string
		payload map[string]string
		code    int
	}{
		{"bad amount", "/api/users/1/expenses", map[string]string{"category": "Food", "amount": "ten"}, http.StatusUnprocessableEntity},
		{"negative amount", "/api/users/1/expenses", map[string]string{"category": "Food", "amount": "-3"}, http.StatusUnprocessableEntity},
		{"grouped amount", "/api/users/1/expenses", map[string]string{"category": "Rent", "amount": "1,500"}, http.StatusUnprocessableEntity},
		{"bad date", "/api/users/1/expenses", map[string]string{"category": "Food", "amount": "3", "date": "03/01/2026"}, http.StatusUnprocessableEntity},
		{"empty category", "/api/users/1/expenses", map[string]string{"category": " ", "amount": "3"}, http.StatusUnprocessableEntity},
		{"unknown user", "/api/users/7/expenses", map[string]string{"category": "Food", "amount": "3"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, tt.target, tt.payload)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateExpense_DefaultsToToday(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "lee@example.com", "student", "500")

	rec := doJSON(t, srv, http.MethodPost, "/api/users/1/expenses", map[string]string{"category": "Food", "amount": "3"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, core.DateOf(time.Now()).String(), decode[core.Expense](t, rec).Date.String())
}

func TestDashboard(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "dev@example.com", "student", "1200")

	today := core.DateOf(time.Now())
	for _, e := range []struct{ category, amount string }{{"Food", "300"}, {"Travel", "100"}, {"Food", "200"}} {
		rec := doJSON(t, srv, http.MethodPost, "/api/users/1/expenses", map[string]string{
			"category": e.category, "amount": e.amount, "date": today.String(),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/api/users/1/dashboard?period=week", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[services.DashboardView](t, rec)

	assert.Equal(t, "student", view.Role)
	assert.True(t, view.Aggregate.TotalSpent.Equal(decimal.NewFromInt(600)))
	require.NotEmpty(t, view.Aggregate.TopCategories)
	assert.Equal(t, "Food", view.Aggregate.TopCategories[0].Name)
	assert.Equal(t, 83, view.Aggregate.TopCategories[0].Percentage)
	assert.True(t, view.Budget.DisplayBudget.Equal(decimal.NewFromInt(300)))
	assert.True(t, view.Budget.SavingsPct.IsZero())
	assert.Len(t, view.Recent, 3)

	// A write invalidates the cached view.
	rec = doJSON(t, srv, http.MethodPost, "/api/users/1/expenses", map[string]string{
		"category": "Books", "amount": "50", "date": today.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/users/1/dashboard?period=week", nil, "")
	view = decode[services.DashboardView](t, rec)
	assert.True(t, view.Aggregate.TotalSpent.Equal(decimal.NewFromInt(650)))

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/users/9/dashboard", nil, "").Code)
}

func TestInsights(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "sam@example.com", "student", "1000")

	rec := do(t, srv, http.MethodGet, "/api/users/1/insights", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"insights":[]}`, rec.Body.String())

	for _, e := range []struct{ category, amount string }{{"Food", "600"}, {"Rent", "400"}} {
		rec := doJSON(t, srv, http.MethodPost, "/api/users/1/expenses", map[string]string{
			"category": e.category, "amount": e.amount, "date": "2026-01-10",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/users/1/insights", nil, "")
	got := decode[insightsResponse](t, rec)
	require.Len(t, got.Insights, 2)
	assert.Contains(t, got.Insights[0], "(60%)")
	assert.Contains(t, got.Insights[0], "Food")
}

func TestOptimizer_FormScaledPlan(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "opt@example.com", "student", "1000")

	form := url.Values{
		"total_budget": {"1000"},
		"categories[]": {"Food", "Travel"},
		"amounts[]":    {"500", "400"},
	}
	rec := do(t, srv, http.MethodPost, "/api/users/1/optimizer", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view := decode[services.PlanView](t, rec)
	assert.True(t, view.Optimized)
	require.Len(t, view.Comparison, 3)
	assert.Equal(t, int64(444), view.Comparison[0].AI)
	assert.Equal(t, int64(355), view.Comparison[1].AI)
	assert.Equal(t, "Savings", view.Comparison[2].Category)
	assert.Equal(t, int64(200), view.Comparison[2].AI)
	assert.Equal(t, "Plan exceeded limit. Reduced categories by 11% to ensure savings.", view.Advice[0])
	assert.Contains(t, view.Advice[len(view.Advice)-1], "₹200.00")
}

func TestOptimizer_JSONItems(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "json@example.com", "student", "1000")

	rec := doJSON(t, srv, http.MethodPost, "/api/users/1/optimizer", map[string]any{
		"total_budget": 1000,
		"items": []map[string]any{
			{"category": "Food", "amount": 300},
			{"category": "", "amount": 50},
			{"category": "Fun", "amount": "200"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view := decode[services.PlanView](t, rec)
	assert.True(t, view.Optimized)
	require.Len(t, view.Comparison, 3)
	assert.Equal(t, int64(300), view.Comparison[0].AI)
	assert.Equal(t, int64(200), view.Comparison[1].AI)
	assert.Len(t, view.Advice, 1, "only the savings advisory when nothing is scaled")
}

func TestOptimizer_InvalidInput(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "bad@example.com", "student", "1000")

	tests := []struct {
		name   string
		total  string
		amount string
	}{
		{"non-numeric amount", "1000", "lots"},
		{"grouped total", "1,200", "900"},
		{"grouped amount", "10000", "1,500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{
				"total_budget": {tt.total},
				"categories[]": {"Rent"},
				"amounts[]":    {tt.amount},
			}
			rec := do(t, srv, http.MethodPost, "/api/users/1/optimizer", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
			require.Equal(t, http.StatusOK, rec.Code)

			view := decode[services.PlanView](t, rec)
			assert.False(t, view.Optimized)
			assert.Equal(t, []string{"Invalid input numbers."}, view.Advice)
			assert.Empty(t, view.Comparison)
		})
	}
}

func TestOptimizer_MissingTotalIsZero(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createUser(t, srv, "zero@example.com", "student", "1000")

	rec := doJSON(t, srv, http.MethodPost, "/api/users/1/optimizer", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[services.PlanView](t, rec)
	assert.True(t, view.Optimized)
	require.Len(t, view.Comparison, 1)
	assert.Equal(t, int64(0), view.Comparison[0].AI)
}

func TestOptimizer_UnknownUser(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rec := doJSON(t, srv, http.MethodPost, "/api/users/5/optimizer", map[string]any{"total_budget": "100"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWritesAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	createUser(t, srv, "one@example.com", "student", "1")
	createUser(t, srv, "two@example.com", "student", "1")
	rec := doJSON(t, srv, http.MethodPost, "/api/users", map[string]string{"email": "three@example.com", "role": "student"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/users/1", nil, "").Code)
}

func TestSuspiciousRequestsBlocked(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rec := do(t, srv, http.MethodGet, "/api/users/1/../../.env", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/statusz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[statusResponse](t, rec)
	assert.Equal(t, int64(1), status.Security.Blocked)
	assert.Equal(t, int64(1), status.Requests.Total, "the status request itself is still in flight")
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, Options{CORSAllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	rec := do(t, srv, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestNewServer_BadTrustedProxy(t *testing.T) {
	_, err := NewServer(":0", Services{}, Options{TrustedProxies: []string{"nope"}})
	assert.Error(t, err)
}
