package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/tally/internal/adapters/address"
	"github.com/vncsmyrnk/tally/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/tally/internal/core/ports"
	"github.com/vncsmyrnk/tally/internal/core/services"
)

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	contract := services.NewContractService(services.ContractDependencies{
		Store:  memory.NewStore(),
		Engine: services.NewPollEngine(address.NewBech32Validator("cosmos")),
	})
	router := NewHandler(NewContractHandler(contract), NewPollHandler(contract), NewVoteHandler(contract))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server, t: t}
}

func (s *testServer) do(method, path, body string) (int, []byte) {
	s.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, b
}

func adminAddress(t *testing.T) string {
	t.Helper()
	addr, err := address.Encode("cosmos", bytes.Repeat([]byte{0x42}, 20))
	require.NoError(t, err)
	return addr
}

func (s *testServer) instantiate() {
	s.t.Helper()
	status, body := s.do(http.MethodPost, "/api/contract/instantiate", `{"admin_address":"`+adminAddress(s.t)+`"}`)
	require.Equal(s.t, http.StatusCreated, status, string(body))
}

func TestPollFlow(t *testing.T) {
	s := newTestServer(t)
	s.instantiate()

	// Step 1: Create a poll
	status, body := s.do(http.MethodPost, "/api/polls", `{"question":"Cats or dogs?"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created ports.Response
	require.NoError(t, json.Unmarshal(body, &created))
	assert.JSONEq(t, `{"poll_id":0}`, string(created.Data))
	pollID, ok := created.Attributes.Get("poll_id")
	require.True(t, ok)
	assert.Equal(t, "0", pollID)

	// Step 2: Vote twice
	for i := 0; i < 2; i++ {
		status, body = s.do(http.MethodPost, "/api/polls/0/votes", `{"vote_type":"yes"}`)
		require.Equal(t, http.StatusOK, status, string(body))
	}

	// Step 3: Tally
	status, body = s.do(http.MethodGet, "/api/polls/0/tally", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"yes_votes":2,"no_votes":0}`, string(body))

	// Step 4: Poll keeps its question
	status, body = s.do(http.MethodGet, "/api/polls/0", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"poll_id":0,"question":"Cats or dogs?","yes_votes":2,"no_votes":0}`, string(body))

	// Step 5: Unknown poll
	status, _ = s.do(http.MethodPost, "/api/polls/1/votes", `{"vote_type":"no"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestContractEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.instantiate()

	status, body := s.do(http.MethodPost, "/api/contract/execute", `{"create_poll":{"question":"Tabs?"}}`)
	require.Equal(t, http.StatusOK, status, string(body))

	var resp ports.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, ports.Attributes{
		{Key: "action", Value: "create_poll"},
		{Key: "poll_id", Value: "0"},
	}, resp.Attributes)

	status, body = s.do(http.MethodPost, "/api/contract/execute", `{"vote":{"poll_id":0,"vote_type":"no"}}`)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = s.do(http.MethodPost, "/api/contract/query", `{"get_tally":{"poll_id":0}}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"yes_votes":0,"no_votes":1}`, string(body))

	status, body = s.do(http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"admin_address":"`+adminAddress(t)+`"}`, string(body))
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(http.MethodPost, "/api/polls", `{"question":"too early"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(http.MethodPost, "/api/contract/instantiate", `{"admin_address":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	s.instantiate()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"second instantiate", http.MethodPost, "/api/contract/instantiate", `{"admin_address":"` + adminAddress(t) + `"}`, http.StatusConflict},
		{"unknown poll tally", http.MethodGet, "/api/polls/7/tally", "", http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/api/polls/abc", "", http.StatusBadRequest},
		{"invalid vote type", http.MethodPost, "/api/polls/0/votes", `{"vote_type":"maybe"}`, http.StatusBadRequest},
		{"missing vote type", http.MethodPost, "/api/contract/execute", `{"vote":{"poll_id":0}}`, http.StatusBadRequest},
		{"two variants", http.MethodPost, "/api/contract/execute", `{"create_poll":{"question":"a"},"vote":{"poll_id":0,"vote_type":"yes"}}`, http.StatusBadRequest},
		{"no variant", http.MethodPost, "/api/contract/query", `{}`, http.StatusBadRequest},
		{"unknown variant", http.MethodPost, "/api/contract/execute", `{"delete_poll":{"poll_id":0}}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/polls", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status, string(body))

			var e errorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))
}
