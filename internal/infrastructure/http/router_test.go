package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"
	"fxrates-engine/internal/infrastructure/filecache"
	"fxrates-engine/internal/infrastructure/provider"
	"fxrates-engine/internal/infrastructure/symbols"

	"github.com/stretchr/testify/require"
)

// setup wires the engine over temp-dir caches. rates feeds the rate provider; the catalog always
// carries the full fake symbol table.
func setup(t *testing.T, rates map[string]float64) (http.Handler, *Server) {
	t.Helper()
	dir := t.TempDir()
	catalog := symbols.NewCatalog(filepath.Join(dir, "symbols.txt"), provider.NewFake(nil), nil)
	catalog.Load(context.Background())

	p := provider.NewFake(rates)
	pairs := filecache.NewPairCache(filepath.Join(dir, "pair_rates.txt"), nil)
	snap := filecache.NewSnapshot(filepath.Join(dir, "rates_snapshot.txt"), nil)
	online := application.NewOnlineStrategy(p, pairs, snap, nil, nil)
	offline := application.NewOfflineStrategy(pairs, snap)
	rc, err := application.NewRateContext(online, offline, domain.ModeOnline)
	require.NoError(t, err)

	srv := NewServer(application.NewRatesService(catalog, rc, p, offline), nil)
	return NewRouter(srv), srv
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	h, _ := setup(t, nil)
	rec := do(h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := setup(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "rid-1", rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	h, srv := setup(t, nil)
	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/readyz", "").Code)

	srv.SetReadyCheck(func(context.Context) error { return errors.New("catalog empty") })
	rec := do(h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"code":503,"message":"not ready: catalog empty"}`, rec.Body.String())
}

func TestCurrencies(t *testing.T) {
	h, _ := setup(t, nil)

	rec := do(h, http.MethodGet, "/currencies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]currencyResponse](t, rec)
	require.Len(t, list, 7)
	require.Equal(t, "CHF", list[0].Code)
	require.Contains(t, list, currencyResponse{Code: "PLN", Name: "Polish Złoty"})

	rec = do(h, http.MethodGet, "/currencies/usd", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, currencyResponse{Code: "USD", Name: "United States Dollar"}, decode[currencyResponse](t, rec))

	rec = do(h, http.MethodGet, "/currencies/XXX", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"code":404,"message":"currency not supported"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/currencies/search?name=euro", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "EUR", decode[currencyResponse](t, rec).Code)

	require.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/currencies/search", "").Code)
	require.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/currencies/search?name=Dogecoin", "").Code)
}

func TestConvert_OnlineThenOffline(t *testing.T) {
	h, _ := setup(t, nil)

	rec := do(h, http.MethodGet, "/convert?from=USD&to=EUR&amount=110", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[application.ConversionResult](t, rec)
	require.InDelta(t, 100.0, res.Result, 1e-9)
	require.Equal(t, domain.ModeOnline, res.Mode)

	rec = do(h, http.MethodPut, "/mode", `{"mode":"offline"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"mode":"offline"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/convert?from=USD&to=EUR&amount=11", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.ModeOffline, decode[application.ConversionResult](t, rec).Mode)

	rec = do(h, http.MethodGet, "/convert?from=EUR&to=GBP&amount=1", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"code":503,"message":"offline data unavailable"}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[application.CacheSummary](t, rec)
	require.Contains(t, sum.Rates, "USD->EUR")
	require.NotNil(t, sum.LatestAt)
}

func TestConvert_BadParams(t *testing.T) {
	h, _ := setup(t, nil)
	for _, target := range []string{
		"/convert?from=USD&to=EUR",
		"/convert?from=USD&to=EUR&amount=abc",
		"/convert?from=USD&to=EUR&amount=-5",
		"/convert?to=EUR&amount=1",
	} {
		rec := do(h, http.MethodGet, target, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.Equal(t, http.StatusBadRequest, decode[errorBody](t, rec).Code)
	}
	require.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/convert?from=USD&to=ZZZ&amount=1", "").Code)
}

func TestConvert_ProviderFailureIs502(t *testing.T) {
	h, _ := setup(t, map[string]float64{"EUR": 1, "USD": 1.1})

	rec := do(h, http.MethodGet, "/convert?from=USD&to=GBP&amount=1", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.True(t, strings.HasPrefix(decode[errorBody](t, rec).Message, "conversion failed: "), rec.Body.String())
}

func TestLatestRateAndRates(t *testing.T) {
	h, _ := setup(t, nil)

	rec := do(h, http.MethodGet, "/rates/latest?from=EUR&to=USD", "")
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[quoteResponse](t, rec)
	require.InDelta(t, 1.10, q.Rate, 1e-9)
	require.Equal(t, "EUR", q.From)

	rec = do(h, http.MethodGet, "/rates?base=usd", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rates := decode[ratesResponse](t, rec)
	require.Equal(t, "USD", rates.Base)
	require.InDelta(t, 1.0, rates.Rates["USD"], 1e-12)

	require.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/rates/latest?from=EUR", "").Code)
}

func TestHistoricalRates(t *testing.T) {
	h, _ := setup(t, nil)

	rec := do(h, http.MethodGet, "/rates/history?from=USD&to=EUR&start=2024-01-01&end=2024-01-05", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Start  string `json:"start"`
		Points []struct {
			Date string  `json:"date"`
			Rate float64 `json:"rate"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "2024-01-01", body.Start)
	require.Len(t, body.Points, 5)
	require.Equal(t, "2024-01-05", body.Points[4].Date)

	rec = do(h, http.MethodGet, "/rates/history?from=USD&to=EUR&start=2024-01-05&end=2024-01-01", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"code":404,"message":"no historical data for selected range"}`, rec.Body.String())

	require.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/rates/history?from=USD&to=EUR&start=yesterday&end=2024-01-01", "").Code)

	require.Equal(t, http.StatusOK, do(h, http.MethodPut, "/mode", `{"mode":"offline"}`).Code)
	rec = do(h, http.MethodGet, "/rates/history?from=USD&to=EUR&start=2024-01-01&end=2024-01-05", "")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHistoricalRates_RangeTooLong(t *testing.T) {
	h, _ := setup(t, nil)
	rec := do(h, http.MethodGet, "/rates/history?from=USD&to=EUR&start=1900-01-01&end=2100-01-01", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "range exceeds")
}

func TestHistoricalRates_AllSamplesMissing(t *testing.T) {
	h, _ := setup(t, map[string]float64{"EUR": 1, "USD": 1.1})
	rec := do(h, http.MethodGet, "/rates/history?from=USD&to=GBP&start=2024-01-01&end=2024-01-05", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMode(t *testing.T) {
	h, _ := setup(t, nil)
	require.JSONEq(t, `{"mode":"online"}`, do(h, http.MethodGet, "/mode", "").Body.String())
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPut, "/mode", `{"mode":"sometimes"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPut, "/mode", `not json`).Code)
	require.JSONEq(t, `{"mode":"online"}`, do(h, http.MethodGet, "/mode", "").Body.String())
}

func TestUnknownRoute(t *testing.T) {
	h, _ := setup(t, nil)
	rec := do(h, http.MethodGet, "/quotes/last", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, 404, decode[errorBody](t, rec).Code)
}
