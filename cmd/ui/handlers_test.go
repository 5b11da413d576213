package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"forex-journal/internal/backend"
	"forex-journal/internal/database"
	"forex-journal/internal/journal"
	"forex-journal/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	users map[string]backend.User
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	if password != "correct-horse" {
		return nil, backend.ErrInvalidCredentials
	}
	return &backend.Session{AccessToken: "tok-1", User: f.users["tok-1"]}, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*backend.Session, error) {
	if email == "taken@example.com" {
		return nil, backend.ErrRegistration
	}
	return &backend.Session{User: backend.User{ID: "new", Email: email}}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error { return nil }

func (f *fakeAuth) User(ctx context.Context, token string) (*backend.User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, backend.ErrUnauthorized
	}
	return &u, nil
}

// setupRouter wires the API over a fresh local database.
func setupRouter(t *testing.T, auth Authenticator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	log := zap.NewNop()
	h := NewAPIHandler(log, journal.NewService(database.NewTradeStore(db), log), auth, "local")
	router := gin.New()
	h.Register(router)
	return router
}

func do(router http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStatusHandler(t *testing.T) {
	router := setupRouter(t, nil)
	w := do(router, http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","store":"local"}`, w.Body.String())
}

func TestTradeLifecycle(t *testing.T) {
	router := setupRouter(t, nil)

	w := do(router, http.MethodPost, "/api/trades", `{"date":"2024-01-01","market":"XAUUSD","setup":"SA1","profit_loss":100,"rules_followed":true,"notes":"clean"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "local", created.Owner)

	w = do(router, http.MethodPost, "/api/trades", `{"date":"2024-01-02","market":"USDJPY","setup":"Fibs","profit_loss":-50,"rules_followed":false}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(router, http.MethodGet, "/api/trades", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trades []models.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, "2024-01-02", trades[0].Date)

	w = do(router, http.MethodPatch, "/api/trades/"+created.ID, `{"profit_loss":120}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalTrades)
	assert.InDelta(t, 70.0, stats.TotalPL, 1e-9)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 50.0, stats.RulesFollowedRate, 1e-9)

	w = do(router, http.MethodDelete, "/api/trades/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(router, http.MethodDelete, "/api/trades/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddTradeValidation(t *testing.T) {
	router := setupRouter(t, nil)
	w := do(router, http.MethodPost, "/api/trades", `{"date":"2024-01-01","market":"BTCUSD","setup":"SA1","profit_loss":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"market"`)
}

func TestExportImport(t *testing.T) {
	router := setupRouter(t, nil)

	csv := "Date,Market,Setup,Profit/Loss,Rules Followed,Notes\n" +
		"2024-01-01,XAUUSD,SA1,125.50,Yes,\"Good, clean entry\"\n" +
		"2024-01-02,XAUUSD,SA1\n"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "trades.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/trades/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"imported":1,"skipped":1}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/trades/export", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, journal.CSVContentType, w.Header().Get("Content-Type"))
	assert.Regexp(t, `attachment; filename="trades_\d{4}-\d{2}-\d{2}\.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t,
		`"Date","Market","Setup","Profit/Loss","Rules Followed","Notes"`+"\n"+
			`"2024-01-01","XAUUSD","SA1","125.5","Yes","Good, clean entry"`,
		w.Body.String())
}

func TestImportRawBody(t *testing.T) {
	router := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/trades/import", strings.NewReader("header\n2024-01-01,USDJPY,Fibs,-2,No"))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"imported":1,"skipped":0}`, w.Body.String())
}

func TestImportTooLarge(t *testing.T) {
	limit := maxImportBytes
	maxImportBytes = 64
	t.Cleanup(func() { maxImportBytes = limit })

	router := setupRouter(t, nil)
	body := "header\n" + strings.Repeat("2024-01-01,USDJPY,Fibs,-2,No\n", 10)
	req := httptest.NewRequest(http.MethodPost, "/api/trades/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/api/trades", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestLotSizeHandlers(t *testing.T) {
	router := setupRouter(t, nil)

	w := do(router, http.MethodGet, "/api/lotsize/capital?capital=5000&pips=25", "", nil)
	assert.JSONEq(t, `{"lot_size":"2.00"}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/lotsize/risk?risk=100&sl_pips=20", "", nil)
	assert.JSONEq(t, `{"lot_size":"0.50"}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/lotsize/risk?risk=abc&sl_pips=20", "", nil)
	assert.JSONEq(t, `{"lot_size":"0.00"}`, w.Body.String())
}

func TestBackendAuth(t *testing.T) {
	auth := &fakeAuth{users: map[string]backend.User{
		"tok-1": {ID: "user-1", Email: "trader@example.com"},
		"tok-2": {ID: "user-2", Email: "other@example.com"},
	}}
	router := setupRouter(t, auth)

	t.Run("Requires token", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/trades", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		w = do(router, http.MethodGet, "/api/trades", "", map[string]string{"Authorization": "Bearer bogus"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Login", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/auth/login", `{"email":"trader@example.com","password":"correct-horse"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"access_token":"tok-1"`)

		w = do(router, http.MethodPost, "/api/auth/login", `{"email":"trader@example.com","password":"wrong-pass"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid email or password")
	})

	t.Run("Register", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/auth/register", `{"email":"taken@example.com","password":"secret1"}`, nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = do(router, http.MethodPost, "/api/auth/register", `{"email":"fresh@example.com","password":"secret1"}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Registration successful!")
	})

	t.Run("Trades are scoped to the token owner", func(t *testing.T) {
		one := map[string]string{"Authorization": "Bearer tok-1"}
		two := map[string]string{"Authorization": "Bearer tok-2"}

		w := do(router, http.MethodPost, "/api/trades", `{"date":"2024-01-01","market":"XAUUSD","setup":"SA1","profit_loss":5,"rules_followed":true}`, one)
		require.Equal(t, http.StatusCreated, w.Code)
		var created models.Trade
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, "user-1", created.Owner)

		w = do(router, http.MethodGet, "/api/trades", "", two)
		assert.JSONEq(t, `[]`, w.Body.String())

		w = do(router, http.MethodDelete, "/api/trades/"+created.ID, "", two)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = do(router, http.MethodGet, "/api/auth/session", "", one)
		assert.JSONEq(t, `{"user_id":"user-1"}`, w.Body.String())

		w = do(router, http.MethodPost, "/api/auth/logout", "", one)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
