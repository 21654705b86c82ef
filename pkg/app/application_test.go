package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	baskethandler "sharebasket/internal/baskets/handler"
	basketservice "sharebasket/internal/baskets/service"
	basketvalidator "sharebasket/internal/baskets/validator"
	"sharebasket/internal/health"
	itemhandler "sharebasket/internal/items/handler"
	itemservice "sharebasket/internal/items/service"
	itemvalidator "sharebasket/internal/items/validator"
	"sharebasket/internal/storage"
	"sharebasket/pkg/basketcode"
	"sharebasket/pkg/config"
	"sharebasket/pkg/events"
	"sharebasket/pkg/keylock"
	"sharebasket/pkg/logger"
	"sharebasket/pkg/metrics"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Port:              "0",
		StoreDriver:       config.StoreSQLite,
		SQLitePath:        filepath.Join(t.TempDir(), "app.db"),
		CodeLength:        basketcode.DefaultLength,
		CodeMaxAttempts:   4,
		RateLimitRequests: 1000,
		RateLimitBurst:    1000,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    4096,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
	}

	store, err := storage.Open(context.Background(), cfg)
	require.NoError(t, err)

	m := metrics.New()
	publisher := m.Publisher(events.NopPublisher{})
	locks := keylock.New()

	gen, err := basketcode.NewGenerator(cfg.CodeLength)
	require.NoError(t, err)

	baskets := basketservice.NewBasketService(store.Baskets, basketvalidator.NewBasketValidator(), locks, publisher, gen, cfg)
	items := itemservice.NewItemService(store.Items, itemvalidator.NewItemValidator(), locks, publisher, cfg)

	application := NewApplication(cfg, m)
	application.SetApp(
		health.NewHealthHandler(store, store.Driver, cfg.Log),
		baskethandler.NewBasketHandler(baskets, cfg.Log),
		itemhandler.NewItemHandler(items, cfg.Log),
	)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		application.stopWorkers()
		_ = store.Close(context.Background())
	})
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, headers ...string) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestSharedBasketOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, created := do(t, srv, http.MethodPost, "/baskets", "")
	require.Equal(t, http.StatusCreated, status)
	code := created["basket_code"].(string)
	assert.True(t, basketcode.Valid(code), code)

	status, joined := do(t, srv, http.MethodPost, "/baskets/"+strings.ToLower(code)+"/participants", `{"name":"Alice"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, code, joined["basket_code"])
	status, _ = do(t, srv, http.MethodPost, "/baskets/"+code+"/participants", `{"name":"Bob"}`)
	require.Equal(t, http.StatusOK, status)

	status, milk := do(t, srv, http.MethodPost, "/baskets/"+code+"/items",
		`{"product":"Milk","price":1.50,"quantity":2,"added_by":"Alice"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 1, milk["id"])

	status, bread := do(t, srv, http.MethodPost, "/baskets/"+code+"/items",
		`{"product":"Bread","price":"1.00","quantity":1,"added_by":"Bob"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 2, bread["id"])

	status, totals := do(t, srv, http.MethodGet, "/baskets/"+code+"/totals?participant=Alice", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "4", totals["total"])
	assert.Equal(t, "3", totals["individual"])

	status, deleted := do(t, srv, http.MethodDelete, "/baskets/"+code+"/items/2", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, deleted["id"])

	status, _ = do(t, srv, http.MethodDelete, "/baskets/"+code+"/items/2", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, totals = do(t, srv, http.MethodGet, "/baskets/"+code+"/totals?participant=Alice", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "3", totals["total"])
	assert.Equal(t, "3", totals["individual"])

	status, list := do(t, srv, http.MethodGet, "/baskets/"+code+"/items", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list["items"], 1)
}

func TestIdempotentAddOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	_, created := do(t, srv, http.MethodPost, "/baskets", "")
	code := created["basket_code"].(string)

	body := `{"product":"Eggs","price":3.10,"quantity":1,"added_by":"Carol"}`
	s1, first := do(t, srv, http.MethodPost, "/baskets/"+code+"/items", body, "Idempotency-Key", "retry-1")
	s2, second := do(t, srv, http.MethodPost, "/baskets/"+code+"/items", body, "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusCreated, s1)
	require.Equal(t, http.StatusCreated, s2)
	assert.Equal(t, first["id"], second["id"])

	_, list := do(t, srv, http.MethodGet, "/baskets/"+code+"/items", "")
	assert.Len(t, list["items"], 1)
}

func TestErrorsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodPost, "/baskets/ZZZZZZ/participants", `{"name":"Bob"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Basket not found", body["error"])
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, _ = do(t, srv, http.MethodGet, "/baskets/ZZZZZZ/items", "")
	assert.Equal(t, http.StatusNotFound, status)

	_, created := do(t, srv, http.MethodPost, "/baskets", "")
	code := created["basket_code"].(string)

	status, body = do(t, srv, http.MethodPost, "/baskets/"+code+"/items", `{"product":"x","price":-1,"quantity":1,"added_by":"Bob"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = do(t, srv, http.MethodPost, "/baskets/"+code+"/items", `{"product":"x","price":1,"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, _ = do(t, srv, http.MethodDelete, "/baskets/"+code+"/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, srv, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	do(t, srv, http.MethodPost, "/baskets", "")

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `sharebasket_http_requests_total{method="POST",route="/baskets",status="201"} 1`)
	assert.Contains(t, string(raw), `sharebasket_basket_activity_total{type="basket_created"} 1`)
}
