package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"card-payment-gateway/internal/adapter/bank"
	httpHandler "card-payment-gateway/internal/adapter/http/handler"
	"card-payment-gateway/internal/adapter/storage/memory"
	redisStorage "card-payment-gateway/internal/adapter/storage/redis"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/internal/service"
	"card-payment-gateway/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testApp wires the full stack against a stub acquiring bank: real router,
// middleware, handlers, services, idempotency guard, and in-memory stores.

const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type stubBank struct {
	server *httptest.Server
	calls  atomic.Int32
	// handler decides the verdict per request; swap it to simulate outages.
	handler atomic.Value // func(w http.ResponseWriter, r *http.Request)
}

func newStubBank() *stubBank {
	b := &stubBank{}
	b.respondAuthorized()
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		b.handler.Load().(func(http.ResponseWriter, *http.Request))(w, r)
	}))
	return b
}

func (b *stubBank) respondAuthorized() {
	b.handler.Store(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ports.AuthorizationResponse{Authorized: true, AuthorizationCode: uuid.NewString()})
	})
}

func (b *stubBank) respondDeclined() {
	b.handler.Store(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ports.AuthorizationResponse{Authorized: false})
	})
}

func (b *stubBank) respondBadRequest() {
	b.handler.Store(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errorMessage":"invalid card"}`, http.StatusBadRequest)
	})
}

func (b *stubBank) respondUnavailable() {
	b.handler.Store(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
}

func (b *stubBank) respondSlowAuthorized(delay time.Duration) {
	b.handler.Store(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		json.NewEncoder(w).Encode(ports.AuthorizationResponse{Authorized: true, AuthorizationCode: "AUTH-SLOW"})
	})
}

type testApp struct {
	server   *httptest.Server
	bank     *stubBank
	redis    *miniredis.Miniredis
	tokenSvc ports.TokenService
}

func newTestApp(t *testing.T, withRedis bool) *testApp {
	t.Helper()

	stub := newStubBank()
	t.Cleanup(stub.server.Close)

	log := logger.New("error", false)
	encSvc, err := service.NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	paymentRepo := memory.NewPaymentStore()
	idempotencyRepo := memory.NewIdempotencyStore()

	var (
		resultCache ports.ResultCache
		mr          *miniredis.Miniredis
	)
	if withRedis {
		mr = miniredis.RunT(t)
		rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		resultCache = redisStorage.NewResultCache(rdb)
	}

	bankCli := bank.NewClient(stub.server.URL, 5*time.Second)
	authorizeSvc := service.NewAuthorizeService(bankCli, paymentRepo, encSvc, log)
	guardedSvc := service.NewGuardedAuthorizeService(authorizeSvc, idempotencyRepo, resultCache, log)
	querySvc := service.NewPaymentQueryService(paymentRepo, encSvc, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Authorizer: guardedSvc,
		QuerySvc:   querySvc,
		TokenSvc:   tokenSvc,
		Logger:     log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, bank: stub, redis: mr, tokenSvc: tokenSvc}
}

func (a *testApp) token(t *testing.T, merchantID uuid.UUID) string {
	t.Helper()
	token, _, err := a.tokenSvc.Generate(merchantID)
	require.NoError(t, err)
	return token
}

func paymentBody() map[string]any {
	return map[string]any{
		"card_number":  "2222405343248877",
		"expiry_month": 4,
		"expiry_year":  2035,
		"currency":     "GBP",
		"amount":       10043,
		"cvv":          "123",
	}
}

// postPayment submits a payment and returns the status code and decoded body.
func (a *testApp) postPayment(t *testing.T, token, idempotencyKey string, body map[string]any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/payments", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(t, resp.Body)
}

func (a *testApp) getPayment(t *testing.T, token, id string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+"/api/v1/payments/"+id, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(t, resp.Body)
}

func decodeBody(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data envelope: %v", body)
	return d
}
