package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/admin"
	"InvestLogic/internal/auth"
	"InvestLogic/internal/cache"
	"InvestLogic/internal/collector"
	"InvestLogic/internal/model"
	"InvestLogic/internal/store"
	"InvestLogic/internal/strategy"
	"InvestLogic/internal/tracker"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

type testAPI struct {
	t       *testing.T
	engine  *gin.Engine
	tracker *tracker.Service
	fetcher *collector.MockFetcher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	reg, err := strategy.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	log := zap.NewNop()
	tr := tracker.NewService(st, reg, tracker.StandardDefaults(), log)
	authSvc := auth.NewService(st, auth.JWT{Secret: []byte("test-secret-0123456789"), TokenTTL: time.Hour, Issuer: "test"}, "boss", log)
	fetcher := &collector.MockFetcher{Price: 20000}
	col := collector.New(fetcher, fetcher, cache.NewMemoryStore(), collector.Options{}, log)

	engine := NewRouter(Deps{
		Auth:      authSvc,
		Tracker:   tr,
		Admin:     admin.NewService(st, reg, log),
		Collector: col,
		Registry:  reg,
		StocksURL: "https://example.notion.site/stocks",
		Log:       log,
	})
	return &testAPI{t: t, engine: engine, tracker: tr, fetcher: fetcher}
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode response: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func (a *testAPI) register(username string) (token string, user model.User) {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/auth/register", "", credentialsRequest{Username: username, Password: "secret123"})
	if w.Code != http.StatusCreated {
		a.t.Fatalf("register %s: status %d %s", username, w.Code, w.Body.String())
	}
	var sess auth.Session
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		a.t.Fatalf("decode session: %v", err)
	}
	return sess.Token, *sess.User
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token, user := api.register("Alice")
	if user.Username != "alice" || user.Tier != model.TierFree {
		t.Fatalf("unexpected user %+v", user)
	}

	w, _ := api.do(http.MethodPost, "/api/auth/register", "", credentialsRequest{Username: "alice", Password: "secret123"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPost, "/api/auth/register", "", credentialsRequest{Username: "zed", Password: strings.Repeat("x", 100)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("overlong password: expected 400, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPost, "/api/auth/login", "", credentialsRequest{Username: "alice", Password: "wrong-pass"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", w.Code)
	}
	w, env := api.do(http.MethodPost, "/api/auth/login", "", credentialsRequest{Username: "alice", Password: "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	if sess := decode[auth.Session](t, env.Data); sess.Token == "" {
		t.Error("login returned no token")
	}

	w, env = api.do(http.MethodGet, "/api/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	if me := decode[model.User](t, env.Data); me.ID != user.ID {
		t.Errorf("me returned %q, want %q", me.ID, user.ID)
	}

	w, _ = api.do(http.MethodGet, "/api/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me: expected 401, got %d", w.Code)
	}
	w, _ = api.do(http.MethodGet, "/api/me", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: expected 401, got %d", w.Code)
	}
}

func TestPlanPreview_Anonymous(t *testing.T) {
	api := newTestAPI(t)
	w, env := api.do(http.MethodPost, "/api/plan/preview", "", tracker.PreviewInput{
		Symbol: "soxl", TotalCapital: 100_000_000, Percent: 100, BasePrice: 30,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", w.Code, w.Body.String())
	}
	plan := decode[model.Plan](t, env.Data)
	if plan.Symbol != "SOXL" || len(plan.Rows) != 10 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.Rows[0].Amount != 4_000_000 || plan.Rows[0].TargetPrice != 30 {
		t.Errorf("unexpected first row %+v", plan.Rows[0])
	}
	if _, ok := env.Meta["pro_avg"]; !ok {
		t.Error("missing pro_avg meta")
	}

	w, _ = api.do(http.MethodPost, "/api/plan/preview", "", tracker.PreviewInput{Symbol: "SOXL", TotalCapital: -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative capital: expected 400, got %d", w.Code)
	}
}

func TestPortfolioAndPlan(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("bob")

	w, env := api.do(http.MethodGet, "/api/portfolio", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("portfolio: %d %s", w.Code, w.Body.String())
	}
	if p := decode[model.Portfolio](t, env.Data); p.TotalCapital != 100_000_000 {
		t.Errorf("expected default capital, got %.0f", p.TotalCapital)
	}

	w, _ = api.do(http.MethodPut, "/api/portfolio/capital", token, gin.H{"total_capital": 50_000_000})
	if w.Code != http.StatusOK {
		t.Fatalf("capital: %d %s", w.Code, w.Body.String())
	}
	w, _ = api.do(http.MethodPut, "/api/portfolio/capital", token, gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing capital: expected 400, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPut, "/api/portfolio/allocations/tqqq", token, gin.H{"percent": 50, "base_price": 60})
	if w.Code != http.StatusOK {
		t.Fatalf("allocation: %d %s", w.Code, w.Body.String())
	}

	w, env = api.do(http.MethodGet, "/api/plan/TQQQ", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("plan: %d %s", w.Code, w.Body.String())
	}
	plan := decode[model.Plan](t, env.Data)
	if plan.AllocatedBudget != 25_000_000 {
		t.Errorf("expected budget 25,000,000, got %.0f", plan.AllocatedBudget)
	}
	if plan.Rows[0].TargetPrice != 60 {
		t.Errorf("expected first target 60, got %.2f", plan.Rows[0].TargetPrice)
	}
}

func TestTrades_Lifecycle(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("carol")
	other, _ := api.register("dave")

	w, env := api.do(http.MethodPost, "/api/trades", token, executeRequest{Symbol: "SOXL", Turn: 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("execute: %d %s", w.Code, w.Body.String())
	}
	rec := decode[model.TradeRecord](t, env.Data)
	if rec.Round != 1 || rec.Amount != 4_000_000 || rec.Price != 30 {
		t.Errorf("unexpected record %+v", rec)
	}

	w, _ = api.do(http.MethodPost, "/api/trades", token, executeRequest{Symbol: "SOXL", Turn: 1})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate execute: expected 409, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPost, "/api/trades", token, executeRequest{Symbol: "SOXL", Turn: 11})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out of range turn: expected 400, got %d", w.Code)
	}

	w, env = api.do(http.MethodPut, "/api/trades/"+rec.ID+"/price", token, gin.H{"price": 25})
	if w.Code != http.StatusOK {
		t.Fatalf("update price: %d %s", w.Code, w.Body.String())
	}
	if got := decode[model.TradeRecord](t, env.Data); got.Qty != 160_000 {
		t.Errorf("expected qty 160000, got %v", got.Qty)
	}
	w, _ = api.do(http.MethodPut, "/api/trades/"+rec.ID+"/price", token, gin.H{"price": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero price: expected 400, got %d", w.Code)
	}

	w, _ = api.do(http.MethodDelete, "/api/trades/"+rec.ID, other, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign delete: expected 404, got %d", w.Code)
	}

	w, env = api.do(http.MethodGet, "/api/trades?symbol=SOXL", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	if list := decode[[]model.TradeRecord](t, env.Data); len(list) != 1 {
		t.Errorf("expected 1 trade, got %d", len(list))
	}

	w, _ = api.do(http.MethodDelete, "/api/trades/"+rec.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	w, env = api.do(http.MethodGet, "/api/trades", token, nil)
	if list := decode[[]model.TradeRecord](t, env.Data); w.Code != http.StatusOK || len(list) != 0 {
		t.Errorf("expected empty list after delete, got %d items", len(list))
	}
}

func TestTierGates(t *testing.T) {
	api := newTestAPI(t)
	adminToken, _ := api.register("boss")
	userToken, user := api.register("erin")

	w, _ := api.do(http.MethodGet, "/api/lab/stocks", userToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("free lab access: expected 403, got %d", w.Code)
	}
	w, _ = api.do(http.MethodGet, "/api/admin/users", userToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("free admin access: expected 403, got %d", w.Code)
	}

	w, env := api.do(http.MethodGet, "/api/admin/users", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin users: %d %s", w.Code, w.Body.String())
	}
	if users := decode[[]model.User](t, env.Data); len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	w, _ = api.do(http.MethodPut, "/api/admin/users/"+user.ID+"/tier", adminToken, tierRequest{Tier: "gold"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad tier: expected 400, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPut, "/api/admin/users/missing/tier", adminToken, tierRequest{Tier: "PRO"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing user: expected 404, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPut, "/api/admin/users/"+user.ID+"/tier", adminToken, tierRequest{Tier: "pro"})
	if w.Code != http.StatusOK {
		t.Fatalf("set tier: %d %s", w.Code, w.Body.String())
	}

	// the same token now carries PRO access because the tier is reloaded
	w, env = api.do(http.MethodGet, "/api/lab/stocks", userToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pro lab access: %d %s", w.Code, w.Body.String())
	}
	if links := decode[map[string]string](t, env.Data); links["stocks_url"] == "" {
		t.Error("missing stocks_url")
	}
}

func TestAdminSettings(t *testing.T) {
	api := newTestAPI(t)
	adminToken, _ := api.register("boss")

	w, env := api.do(http.MethodGet, "/api/admin/settings", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get settings: %d", w.Code)
	}
	if s := decode[model.GlobalSettings](t, env.Data); s.MarketStatus != strategy.StatusFear {
		t.Errorf("expected default status, got %q", s.MarketStatus)
	}

	w, _ = api.do(http.MethodPut, "/api/admin/settings", adminToken, settingsRequest{CSVURL: "https://docs.google.com/sheet"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad csv url: expected 400, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPut, "/api/admin/settings", adminToken, settingsRequest{MarketStatus: "panic"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status: expected 400, got %d", w.Code)
	}
	csv := "https://docs.google.com/spreadsheets/d/e/x/pub?output=csv"
	w, env = api.do(http.MethodPut, "/api/admin/settings", adminToken, settingsRequest{CSVURL: csv})
	if w.Code != http.StatusOK {
		t.Fatalf("save settings: %d %s", w.Code, w.Body.String())
	}
	if s := decode[model.GlobalSettings](t, env.Data); s.CSVURL != csv {
		t.Errorf("csv url not saved: %+v", s)
	}
}

func TestMarketEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(http.MethodGet, "/api/market/snapshot", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot: %d %s", w.Code, w.Body.String())
	}
	snap := decode[model.MarketSnapshot](t, env.Data)
	if snap.Main.Symbol != "NQ=F" || len(snap.Indexes) != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	w, env = api.do(http.MethodGet, "/api/market/ndx?days=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ndx: %d %s", w.Code, w.Body.String())
	}
	if series := decode[model.IndexSeries](t, env.Data); len(series.Series) != collector.MinSeriesDays {
		t.Errorf("expected clamp to %d points, got %d", collector.MinSeriesDays, len(series.Series))
	}

	w, env = api.do(http.MethodGet, "/api/market/zone?current=80&high=100", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("zone: %d %s", w.Code, w.Body.String())
	}
	var zone struct {
		Zone struct {
			Level    int     `json:"level"`
			DropRate float64 `json:"drop_rate"`
		} `json:"zone"`
	}
	if err := json.Unmarshal(env.Data, &zone); err != nil {
		t.Fatal(err)
	}
	if zone.Zone.Level != 2 || zone.Zone.DropRate != 20 {
		t.Errorf("unexpected zone %+v", zone.Zone)
	}

	w, _ = api.do(http.MethodGet, "/api/market/zone?current=0&high=100", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero current: expected 400, got %d", w.Code)
	}
	w, _ = api.do(http.MethodGet, "/api/market/zone", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("series zone: expected 200, got %d", w.Code)
	}

	w, env = api.do(http.MethodGet, "/api/market/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var status struct {
		Gauge strategy.Gauge `json:"gauge"`
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatal(err)
	}
	if status.Gauge.Score != 30 || status.Gauge.Angle != -36 {
		t.Errorf("unexpected gauge %+v", status.Gauge)
	}

	w, env = api.do(http.MethodGet, "/api/market/option-expiry?year=2025&month=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("option expiry: %d", w.Code)
	}
	var exp struct {
		KR time.Time `json:"kr"`
		US time.Time `json:"us"`
	}
	if err := json.Unmarshal(env.Data, &exp); err != nil {
		t.Fatal(err)
	}
	if exp.KR.Day() != 9 || exp.US.Day() != 17 {
		t.Errorf("unexpected expiries kr=%s us=%s", exp.KR, exp.US)
	}
	w, _ = api.do(http.MethodGet, "/api/market/option-expiry?year=2025&month=13", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad month: expected 400, got %d", w.Code)
	}
}

func TestMarketSnapshot_UpstreamFailure(t *testing.T) {
	api := newTestAPI(t)
	api.fetcher.Price = 0
	w, _ := api.do(http.MethodGet, "/api/market/snapshot", "", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestTradeStream(t *testing.T) {
	api := newTestAPI(t)
	token, user := api.register("frank")

	srv := httptest.NewServer(api.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/trades/stream?access_token="+token, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	nextData := func() tracker.Snapshot {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data:"); ok {
				var snap tracker.Snapshot
				if err := json.Unmarshal([]byte(data), &snap); err != nil {
					t.Fatalf("decode event %q: %v", data, err)
				}
				return snap
			}
		}
	}

	if first := nextData(); len(first.Trades) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d trades", len(first.Trades))
	}

	deadline := time.Now().Add(2 * time.Second)
	for api.tracker.Feed().Subscribers(user.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := api.tracker.RegisterExecution(context.Background(), user.ID, "SOXL", 1); err != nil {
		t.Fatalf("RegisterExecution: %v", err)
	}
	snap := nextData()
	if snap.UserID != user.ID || len(snap.Trades) != 1 || snap.Trades[0].Round != 1 {
		t.Errorf("unexpected pushed snapshot %+v", snap)
	}
}
