package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-ledger/internal/address"
	"token-ledger/internal/bank/stub"
	"token-ledger/internal/contract"
	"token-ledger/internal/domain"
	"token-ledger/internal/storage/memory"
)

var (
	admin        = address.FromSeed("admin")
	alice        = address.FromSeed("alice")
	bob          = address.FromSeed("bob")
	contractAddr = address.FromSeed("contract")
)

func newTestServer(t *testing.T, queryRate float64) (*httptest.Server, *stub.Reserve) {
	t.Helper()
	backend := memory.NewKVStore()
	genesis := &contract.Genesis{
		Name:     "Ledger Token",
		Symbol:   "LGT",
		Decimals: 6,
		Admin:    admin,
		PrngSeed: "seed",
		Config: contract.Features{
			EnableDeposit: true,
			EnableRedeem:  true,
		},
		ReserveDenom: "ughm",
	}
	_, err := contract.Instantiate(context.Background(), backend, genesis, nil, domain.BlockInfo{})
	require.NoError(t, err)

	reserve := stub.NewReserve()
	srv := newServer(contract.New(backend, contract.Options{Reserve: reserve, Settler: reserve}), serverConfig{
		contractAddr: contractAddr,
		chainID:      "test-1",
		storage:      "memory",
		queryRate:    queryRate,
		queryBurst:   1,
	})
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts, reserve
}

func post(t *testing.T, url string, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestServer_DepositRedeemRoundTrip(t *testing.T) {
	ts, reserve := newTestServer(t, 0)

	resp, out := post(t, ts.URL+"/execute", fmt.Sprintf(
		`{"sender":%q,"sent_funds":[{"denom":"ughm","amount":"500"}],"msg":{"deposit":{}}}`, alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"deposit":{"status":"success"}}`, string(out["data"]))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	got, _ := reserve.Balance(context.Background(), contractAddr, "ughm")
	assert.Equal(t, domain.NewAmount(500), got)

	resp, out = post(t, ts.URL+"/execute", fmt.Sprintf(`{"sender":%q,"msg":{"redeem":{"amount":"200"}}}`, alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(out["messages"]), "bank_send")

	got, _ = reserve.Balance(context.Background(), contractAddr, "ughm")
	assert.Equal(t, domain.NewAmount(300), got)
}

func TestServer_ExecuteErrors(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{`, http.StatusBadRequest},
		{"missing msg", fmt.Sprintf(`{"sender":%q}`, alice), http.StatusBadRequest},
		{"unknown command", fmt.Sprintf(`{"sender":%q,"msg":{"steal":{}}}`, alice), http.StatusBadRequest},
		{"insufficient funds", fmt.Sprintf(`{"sender":%q,"msg":{"transfer":{"recipient":%q,"amount":"1"}}}`, alice, bob), http.StatusBadRequest},
		{"mint disabled", fmt.Sprintf(`{"sender":%q,"msg":{"mint":{"recipient":%q,"amount":"1"}}}`, admin, bob), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, ts.URL+"/execute", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, out, "error")
		})
	}
}

func TestServer_QueryAndRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, 0.001)

	resp, out := post(t, ts.URL+"/query", `{"token_info":{}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, "token_info")

	resp, out = post(t, ts.URL+"/query", `{"token_info":{}}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, out, "error")
}

func TestServer_StatusCountsCalls(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	post(t, ts.URL+"/execute", fmt.Sprintf(`{"sender":%q,"msg":{"set_viewing_key":{"key":"k"}}}`, alice))
	post(t, ts.URL+"/execute", fmt.Sprintf(`{"sender":%q,"msg":{"burn":{"amount":"1"}}}`, alice))

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, uint64(2), status.BlockHeight)
	assert.Equal(t, uint64(1), status.Executed)
	assert.Equal(t, uint64(1), status.Failed)
	assert.Equal(t, contractAddr, status.Contract)
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
