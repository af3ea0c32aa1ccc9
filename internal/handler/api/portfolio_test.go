package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CoinFolio/internal/domain/models"
	"CoinFolio/internal/ledger"
	"CoinFolio/internal/pricecache"
	"CoinFolio/internal/usecase"
	"CoinFolio/pkg/http/middleware"
	applogger "CoinFolio/pkg/logger"

	"github.com/labstack/echo/v4"
)

const testSecret = "handler-test-secret"

type stubFetcher struct {
	failWith error
}

func (f *stubFetcher) Fetch(_ context.Context, symbol string, from, to time.Time) ([]models.PriceTick, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var ticks []models.PriceTick
	price := 100.0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		ticks = append(ticks, models.PriceTick{Symbol: symbol, Date: d, Close: price})
		price += 1
	}
	return ticks, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string)      {}
func (nopMetrics) RecordCacheHit(string)           {}
func (nopMetrics) RecordCacheMiss(string)          {}
func (nopMetrics) RecordStaleServe(string)         {}
func (nopMetrics) RecordFlightJoin(string)         {}
func (nopMetrics) RecordLedgerRejection(string)    {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

type failingChecker struct{}

func (failingChecker) Name() string  { return "archive" }
func (failingChecker) Health() error { return errors.New("connection refused") }

func newTestServer(t *testing.T, fetcher *stubFetcher) *echo.Echo {
	t.Helper()
	log := applogger.Nop()
	cache := pricecache.New(fetcher, nopMetrics{}, pricecache.WithLogger(log))
	loader := usecase.NewSeriesLoader(cache, 2, log)
	ledgers := ledger.NewStore()

	portfolio := usecase.NewPortfolioUseCase(ledgers, loader, nil, nopMetrics{}, log)
	summary := usecase.NewSummaryUseCase(ledgers, loader)
	macd := usecase.NewMACDUseCase(loader, 120)

	h := NewPortfolioHandler(log, portfolio, summary, macd, nil, testSecret, failingChecker{})
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func authHeader(t *testing.T, userID string) string {
	t.Helper()
	tok, err := middleware.GenerateToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + tok
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(e *echo.Echo, method, target, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMissingTokenRejected(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodGet, "/api/portfolio", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] != "Token is missing!" {
		t.Fatalf("error = %q, want %q", body["error"], "Token is missing!")
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodGet, "/api/portfolio", "Bearer not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Token is invalid!" {
		t.Fatalf("error = %q, want %q", body["error"], "Token is invalid!")
	}
}

func TestAddHoldingAndPortfolioRoundTrip(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})
	auth := authHeader(t, "alice")

	rec := doJSON(e, http.MethodPost, "/api/add_holding", auth, map[string]interface{}{
		"symbol":         "BTC",
		"purchase_date":  "2024-03-04",
		"purchase_price": 50000.123456,
		"quantity":       0.123456789123,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add_holding status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Status != http.StatusCreated {
		t.Fatalf("envelope status = %d, want 201", env.Status)
	}
	var added addHoldingResponse
	if err := json.Unmarshal(env.Data, &added); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if added.Transaction.ID == "" {
		t.Fatal("transaction id not assigned")
	}
	if added.Transaction.Price != 50000.12 {
		t.Fatalf("price = %v, want 2dp rounding to 50000.12", added.Transaction.Price)
	}
	if added.Transaction.Quantity != 0.12345679 {
		t.Fatalf("quantity = %v, want 8dp rounding to 0.12345679", added.Transaction.Quantity)
	}

	rec = doJSON(e, http.MethodGet, "/api/portfolio", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	var pf portfolioResponse
	if err := json.Unmarshal(env.Data, &pf); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(pf.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(pf.Transactions))
	}
	if _, ok := pf.Positions["BTC"]; !ok {
		t.Fatal("BTC position missing")
	}
}

func TestPortfoliosAreIsolatedPerUser(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodPost, "/api/add_holding", authHeader(t, "alice"), map[string]interface{}{
		"symbol": "ETH", "purchase_date": "2024-03-04", "purchase_price": 3000.0, "quantity": 1.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add_holding status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/portfolio", authHeader(t, "bob"), nil)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var pf portfolioResponse
	if err := json.Unmarshal(env.Data, &pf); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(pf.Transactions) != 0 {
		t.Fatalf("bob sees %d transactions, want 0", len(pf.Transactions))
	}
}

func TestAddHoldingValidationFailure(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodPost, "/api/add_holding", authHeader(t, "alice"), map[string]interface{}{
		"purchase_date": "2024-03-04", "purchase_price": 10.0, "quantity": 1.0,
	})
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("envelope status = %d, want 400", env.Status)
	}
}

func TestOversellRejectedWithInsufficientHoldings(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})
	auth := authHeader(t, "alice")

	doJSON(e, http.MethodPost, "/api/add_holding", auth, map[string]interface{}{
		"symbol": "BTC", "purchase_date": "2024-03-04", "purchase_price": 100.0, "quantity": 1.0,
	})
	rec := doJSON(e, http.MethodPost, "/api/add_holding", auth, map[string]interface{}{
		"symbol": "BTC", "purchase_date": "2024-03-05", "purchase_price": 110.0, "quantity": 2.0, "type": "Sell",
	})
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("envelope status = %d, want 400", env.Status)
	}
	if !bytes.Contains(env.Data, []byte("ERR_INSUFFICIENT_HOLDINGS")) {
		t.Fatalf("data missing insufficient holdings code: %s", env.Data)
	}
}

func TestMACDAnalysisReturnsPoints(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodGet, "/api/macd_analysis?symbol=BTC", authHeader(t, "alice"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var res macdResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if res.Fast != 12 || res.Slow != 26 || res.Signal != 9 {
		t.Fatalf("defaults = %d/%d/%d, want 12/26/9", res.Fast, res.Slow, res.Signal)
	}
	if len(res.Points) == 0 {
		t.Fatal("expected MACD points from 120 days of history")
	}
}

func TestMACDUpstreamFailureIs502(t *testing.T) {
	e := newTestServer(t, &stubFetcher{failWith: errors.New("upstream down")})

	rec := doJSON(e, http.MethodGet, "/api/macd_analysis?symbol=BTC", authHeader(t, "alice"), nil)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusBadGateway {
		t.Fatalf("envelope status = %d, want 502", env.Status)
	}
}

func TestWeeklySummaryEmptyLedger(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodGet, "/api/weekly_summary", authHeader(t, "carol"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var res weeklySummaryResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(res.Weeks) != 0 {
		t.Fatalf("weeks = %d, want 0 for empty ledger", len(res.Weeks))
	}
}

func TestRealtimeDisabledIs404(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodGet, "/api/realtime?symbol=BTC", authHeader(t, "alice"), nil)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != http.StatusNotFound {
		t.Fatalf("envelope status = %d, want 404", env.Status)
	}
}

func TestHealthSkipsAuthAndReportsComponents(t *testing.T) {
	e := newTestServer(t, &stubFetcher{})

	rec := doJSON(e, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without auth", rec.Code)
	}
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var res healthResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if res.Status != "degraded" {
		t.Fatalf("status = %q, want degraded with failing archive", res.Status)
	}
	if res.Components["archive"] != "connection refused" {
		t.Fatalf("archive component = %q", res.Components["archive"])
	}
}
