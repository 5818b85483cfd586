package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/domain"
	"finrag/internal/embedding/hashing"
	"finrag/internal/history"
	"finrag/internal/service"
	"finrag/internal/store"
)

type stubLLM struct{ answer string }

func (s stubLLM) Complete(context.Context, []domain.Message) (string, error) {
	return s.answer, nil
}

func (s stubLLM) Stream(context.Context, []domain.Message) (<-chan domain.StreamChunk, error) {
	out := make(chan domain.StreamChunk, 8)
	for _, part := range strings.SplitAfter(s.answer, " ") {
		out <- domain.StreamChunk{Text: part}
	}
	close(out)
	return out, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(store.NewManager(0), hashing.NewEmbedder(384),
		stubLLM{answer: "here are your transactions"}, history.Noop{},
		zerolog.Nop(), service.DefaultConfig())
	srv := httptest.NewServer(New(svc, zerolog.Nop()).Handler([]string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func sampleCorpus() []map[string]any {
	return []map[string]any{
		{"txnId": "T1", "accountNumber": "XX1", "createdAt": "2024-03-01", "amount": 500,
			"type": "DEBIT", "mode": "UPI", "narration": "Zomato order"},
		{"txnId": "T2", "accountNumber": "XX1", "createdAt": "2024-03-05", "amount": 20000,
			"type": "DEBIT", "mode": "FT", "narration": "Rent"},
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestIngestThenStatusAndQuery(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/ingest", map[string]any{
		"user_id": "u1", "context_data": sampleCorpus(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ingest map[string]any
	decode(t, resp, &ingest)
	assert.EqualValues(t, 2, ingest["ingested"])

	resp, err := http.Get(srv.URL + "/status?user_id=u1")
	require.NoError(t, err)
	var status map[string]any
	decode(t, resp, &status)
	assert.Equal(t, true, status["ingested"])
	assert.EqualValues(t, 2, status["count"])
	assert.Contains(t, status, "updated_at")

	resp = postJSON(t, srv.URL+"/query", map[string]any{
		"user_id": "u1", "prompt": "show all UPI transactions",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rag struct {
		QueryID       string           `json:"query_id"`
		Mode          string           `json:"mode"`
		Answer        string           `json:"answer"`
		MatchingCount int              `json:"matching_transactions_count"`
		Filters       []string         `json:"filters_applied"`
		Transactions  []map[string]any `json:"transactions"`
		Pagination    map[string]any   `json:"pagination"`
	}
	decode(t, resp, &rag)
	assert.NotEmpty(t, rag.QueryID)
	assert.Equal(t, "SMART_FULL", rag.Mode)
	assert.Equal(t, 1, rag.MatchingCount)
	assert.Contains(t, rag.Filters, "mode=UPI")
	require.Len(t, rag.Transactions, 1)
	assert.Equal(t, "T1", rag.Transactions[0]["transaction_id"])
	assert.EqualValues(t, 1, rag.Pagination["total_items"])
}

func TestPromptEndpointRequiresIngestedData(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/prompt", map[string]any{
		"user_id": "ghost", "prompt": "anything",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "NOT_INGESTED", body["error_kind"])
}

func TestPromptIgnoresInlineContext(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/prompt", map[string]any{
		"user_id": "ghost", "prompt": "anything", "context_data": sampleCorpus(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "/prompt never accepts inline context")
}

func TestQueryAcceptsInlineContext(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/query", map[string]any{
		"user_id": "ghost", "prompt": "show all transactions", "context_data": sampleCorpus(),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmptyPromptKind(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/query", map[string]any{"user_id": "u1", "prompt": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "EMPTY_PROMPT", body["error_kind"])
}

func TestInvalidJSONRejected(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryStreamEventSequence(t *testing.T) {
	srv := newTestServer(t)
	postJSON(t, srv.URL+"/ingest", map[string]any{
		"user_id": "u1", "context_data": sampleCorpus(),
	}).Body.Close()

	resp := postJSON(t, srv.URL+"/query/stream", map[string]any{
		"user_id": "u1", "prompt": "show all transactions",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var events []string
	var chunkText string
	var eventName string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
			events = append(events, eventName)
		case strings.HasPrefix(line, "data: ") && eventName == "chunk":
			var payload struct {
				Text string `json:"text"`
			}
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload))
			chunkText += payload.Text
		}
	}

	require.NotEmpty(t, events)
	assert.Equal(t, "metadata", events[0], "metadata precedes the first chunk")
	assert.Equal(t, "done", events[len(events)-1])
	assert.Equal(t, "metadata_final", events[len(events)-2])
	assert.Equal(t, "here are your transactions", chunkText)
	assert.NotContains(t, events, "error")
}

func TestStreamErrorEvent(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/query/stream", map[string]any{
		"user_id": "ghost", "prompt": "hello",
	})
	defer resp.Body.Close()
	// Stream starts as 200; the failure arrives as an error event.
	require.Equal(t, http.StatusOK, resp.StatusCode)

	found := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: error") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/query", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMethodRouting(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ingest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusRequiresUserID(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryEndpointsWithNoopStore(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/history?user_id=u1&limit=5")
	require.NoError(t, err)
	var body map[string]any
	decode(t, resp, &body)
	assert.EqualValues(t, 0, body["count"])

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/history?user_id=u1", srv.URL), nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)
}
