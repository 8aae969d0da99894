package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfs-core/mfs_ledger/internal/commission"
	"github.com/mfs-core/mfs_ledger/internal/config"
	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/logging"
	"github.com/mfs-core/mfs_ledger/internal/routes"
)

const (
	operatorPhone = "01900000000"
	operatorPIN   = "9999"
)

func testConfig() config.Config {
	return config.Config{
		AppName:                "mfs-test",
		AppEnv:                 "test",
		JWTSecret:              "test-secret",
		AccessTokenTTL:         time.Hour,
		IdempotencyTTL:         time.Hour,
		SummaryCacheTTL:        0,
		LoginRateLimit:         100,
		Currency:               "BDT",
		InitialBalance:         50,
		OperatorInitialBalance: 100_000_000,
		Operator:               config.Operator{Name: "Operator", Phone: operatorPhone, PIN: operatorPIN},
		Fees:                   commission.DefaultSchedule(),
	}
}

type apiClient struct {
	t   *testing.T
	srv *Server
	n   int
}

func newClient(t *testing.T, cache *redis.Client) *apiClient {
	t.Helper()
	srv, err := New(context.Background(), testConfig(), nil, cache, logging.Discard())
	require.NoError(t, err)
	_, err = srv.Components().Onboarding.SeedOperator(context.Background(), routes.OperatorFromConfig(testConfig()))
	require.NoError(t, err)
	return &apiClient{t: t, srv: srv}
}

func (a *apiClient) do(method, path, token string, body any, headers ...string) (int, map[string]any) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.srv.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func (a *apiClient) register(role domain.Role) (id, phone string) {
	a.t.Helper()
	a.n++
	phone = fmt.Sprintf("0171%07d", a.n)
	status, body := a.do(http.MethodPost, "/api/v1/parties/register", "", map[string]any{
		"name": "Party " + phone, "phone": phone, "pin": "1234", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, status, body)
	return body["party"].(map[string]any)["id"].(string), phone
}

func (a *apiClient) login(phone, pin string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"phone": phone, "pin": pin})
	require.Equal(a.t, http.StatusOK, status, body)
	return body["access_token"].(string)
}

func (a *apiClient) balance(token string) float64 {
	a.t.Helper()
	status, body := a.do(http.MethodGet, "/api/v1/wallet", token, nil)
	require.Equal(a.t, http.StatusOK, status, body)
	return body["balance"].(float64)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestTransferFlowOverHTTP(t *testing.T) {
	api := newClient(t, nil)
	admin := api.login(operatorPhone, operatorPIN)

	agentID, agentPhone := api.register(domain.RoleAgent)
	_, alicePhone := api.register(domain.RoleUser)
	bobID, bobPhone := api.register(domain.RoleUser)
	alice := api.login(alicePhone, "1234")
	agent := api.login(agentPhone, "1234")

	// Pending agents are not eligible to receive float.
	status, body := api.do(http.MethodPost, "/api/v1/transfers/add-money", admin, map[string]any{"phone": agentPhone, "amount": 5000})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "PARTY_NOT_ELIGIBLE", errorCode(body))

	status, _ = api.do(http.MethodPatch, "/api/v1/parties/"+agentID+"/approval", admin, map[string]any{"approval": "APPROVED"})
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPost, "/api/v1/transfers/add-money", admin, map[string]any{"phone": agentPhone, "amount": 5000})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(5050), api.balance(agent))

	// Cash-in needs a verified user.
	status, body = api.do(http.MethodPost, "/api/v1/transfers/cash-in", agent, map[string]any{"phone": bobPhone, "amount": 1000})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "PARTY_NOT_ELIGIBLE", errorCode(body))
	status, _ = api.do(http.MethodPatch, "/api/v1/parties/"+bobID+"/verify", admin, map[string]any{"verified": true})
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPost, "/api/v1/transfers/cash-in", agent, map[string]any{"phone": bobPhone, "amount": 1000})
	require.Equal(t, http.StatusCreated, status)

	bob := api.login(bobPhone, "1234")
	assert.Equal(t, float64(1050), api.balance(bob))

	status, body = api.do(http.MethodPost, "/api/v1/transfers/send-money", bob, map[string]any{"phone": alicePhone, "amount": 100})
	require.Equal(t, http.StatusCreated, status, body)
	// The fee comes out of the amount sent.
	assert.Equal(t, float64(950), api.balance(bob))
	assert.Equal(t, float64(145), api.balance(alice))

	status, body = api.do(http.MethodPost, "/api/v1/transfers/cash-out", bob, map[string]any{"phone": agentPhone, "amount": 600})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, float64(350), api.balance(bob))
	assert.Equal(t, float64(4050+600-3), api.balance(agent))

	status, body = api.do(http.MethodPost, "/api/v1/transfers/send-money", alice, map[string]any{"phone": bobPhone, "amount": 1000})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_BALANCE", errorCode(body))

	status, body = api.do(http.MethodPost, "/api/v1/transfers/send-money", alice, map[string]any{"phone": bobPhone, "amount": 0})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(body))

	// Users cannot start agent transfers.
	status, _ = api.do(http.MethodPost, "/api/v1/transfers/cash-in", alice, map[string]any{"phone": bobPhone, "amount": 10})
	require.Equal(t, http.StatusForbidden, status)

	status, body = api.do(http.MethodGet, "/api/v1/commissions/summary", agent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(6), body["agent_commission"])

	status, body = api.do(http.MethodGet, "/api/v1/commissions/summary", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5+3), body["total_commission"])

	status, body = api.do(http.MethodGet, "/api/v1/transactions/me?type=SEND_MONEY", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, _ = api.do(http.MethodGet, "/api/v1/transactions", bob, nil)
	require.Equal(t, http.StatusForbidden, status)

	report, err := api.srv.Components().Ledger.Audit(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy(), "%+v", report)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newClient(t, nil)
	status, body := api.do(http.MethodGet, "/api/v1/wallet", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestSelfRegistrationCannotCreateAdmins(t *testing.T) {
	api := newClient(t, nil)
	status, body := api.do(http.MethodPost, "/api/v1/parties/register", "", map[string]any{
		"name": "Mallory", "phone": "01799999999", "pin": "1234", "role": "SUPER_ADMIN",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(body))
}

func TestTransfersReplayWithIdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := newClient(t, rdb)
	_, alicePhone := api.register(domain.RoleUser)
	_, bobPhone := api.register(domain.RoleUser)
	alice := api.login(alicePhone, "1234")

	req := map[string]any{"phone": bobPhone, "amount": 10}
	status, first := api.do(http.MethodPost, "/api/v1/transfers/send-money", alice, req, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, status, first)
	status, second := api.do(http.MethodPost, "/api/v1/transfers/send-money", alice, req, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, first["entry"], second["entry"])
	assert.Equal(t, float64(40), api.balance(alice))

	status, _ = api.do(http.MethodPost, "/api/v1/transfers/send-money", alice, req)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestHealthz(t *testing.T) {
	api := newClient(t, nil)
	status, body := api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "disabled", body["status"].(map[string]any)["postgres"])
}

func TestErrorHandlerMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validation("op", "bad"), http.StatusBadRequest, "VALIDATION"},
		{domain.NotEligible("op", "no"), http.StatusUnprocessableEntity, "PARTY_NOT_ELIGIBLE"},
		{fmt.Errorf("wrapped: %w", domain.InsufficientBalance("op", "w1")), http.StatusConflict, "INSUFFICIENT_BALANCE"},
		{domain.TransferFailed("op", errors.New("disk full")), http.StatusInternalServerError, "TRANSFER_FAILED"},
		{domain.NotFound("op", "wallet"), http.StatusNotFound, "NOT_FOUND"},
		{fiber.NewError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "RATE_LIMITED"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			app := NewApp("test", logging.Discard())
			app.Get("/", func(*fiber.Ctx) error { return tc.err })
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.code, errorCode(body))
		})
	}
}

func TestTransferFailureHidesCause(t *testing.T) {
	_, body := render(domain.TransferFailed("transfer.Execute", errors.New("pq: connection reset")))
	assert.Equal(t, "transfer failed", body.Error.Message)
}
