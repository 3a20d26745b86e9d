package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/lru-cache/internal/cache"
	"github.com/koopa0/lru-cache/internal/server"
)

// newTestServer 建立測試用的 HTTP 服務
func newTestServer(t *testing.T, capacity int) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := server.New(cache.NewLRU[string, any](capacity), logger)

	ts := httptest.NewServer(h.Routes())
	t.Cleanup(ts.Close)
	return ts
}

// doRequest 發送請求並解析 JSON 響應
func doRequest(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded))
	}
	return resp.StatusCode, decoded
}

// put 寫入一個 key
func put(t *testing.T, ts *httptest.Server, key string, value any) {
	t.Helper()
	status, _ := doRequest(t, http.MethodPut, ts.URL+"/api/v1/cache/"+key, map[string]any{"value": value})
	require.Equal(t, http.StatusNoContent, status)
}

// TestHandler_SetGet 測試寫入與讀取
func TestHandler_SetGet(t *testing.T) {
	ts := newTestServer(t, 8)

	put(t, ts, "greeting", "hello")

	status, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/greeting", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "greeting", body["key"])
	assert.Equal(t, "hello", body["value"])
}

// TestHandler_GetMiss 測試未命中返回 404 與統一錯誤格式
func TestHandler_GetMiss(t *testing.T) {
	ts := newTestServer(t, 8)

	status, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/missing", nil)
	require.Equal(t, http.StatusNotFound, status)

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
}

// TestHandler_PeekExists 測試 Peek 與 exists 不改變存取順序
func TestHandler_PeekExists(t *testing.T) {
	ts := newTestServer(t, 8)

	put(t, ts, "a", "1")
	put(t, ts, "b", "2")

	// peek 最久未使用的 a
	status, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/a/peek", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1", body["value"])

	// exists
	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/a/exists", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["cached"])

	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/nope/exists", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["cached"])

	// 順序不變：b 仍在最前面，a 仍在最後面
	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"b", "a"}, body["keys"])
	assert.Equal(t, "b", body["front"])
	assert.Equal(t, "a", body["back"])

	// peek/exists 不影響計數器
	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["hits"])
	assert.Equal(t, float64(0), body["misses"])
}

// TestHandler_Delete 測試刪除
func TestHandler_Delete(t *testing.T) {
	ts := newTestServer(t, 8)

	put(t, ts, "a", "1")

	status, _ := doRequest(t, http.MethodDelete, ts.URL+"/api/v1/cache/a", nil)
	assert.Equal(t, http.StatusNoContent, status)

	// 已刪除：再刪返回 404
	status, _ = doRequest(t, http.MethodDelete, ts.URL+"/api/v1/cache/a", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// TestHandler_EvictionScenario 透過 HTTP 走一遍容量 2 的淘汰情境
func TestHandler_EvictionScenario(t *testing.T) {
	ts := newTestServer(t, 2)

	put(t, ts, "A", float64(1))
	put(t, ts, "B", float64(2))

	// get(A)：返回 1，順序變為 [A, B]
	status, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/A", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["value"])

	// put(C)：淘汰最久未使用的 B
	put(t, ts, "C", float64(3))

	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"C", "A"}, body["keys"])
	assert.Equal(t, float64(2), body["size"])
	assert.Equal(t, float64(2), body["capacity"])

	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/B/exists", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["cached"])

	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["hits"])
	assert.Equal(t, float64(1), body["bounces"])
}

// TestHandler_Clear 測試清空快取後統計保留
func TestHandler_Clear(t *testing.T) {
	ts := newTestServer(t, 4)

	put(t, ts, "a", "1")
	put(t, ts, "b", "2")
	doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/a", nil)       // hit
	doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache/missing", nil) // miss

	status, _ := doRequest(t, http.MethodDelete, ts.URL+"/api/v1/cache", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["size"])
	assert.Empty(t, body["keys"])

	// 統計計數器不歸零
	status, body = doRequest(t, http.MethodGet, ts.URL+"/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["hits"])
	assert.Equal(t, float64(1), body["misses"])
}

// TestHandler_InvalidBody 測試無效請求內容
func TestHandler_InvalidBody(t *testing.T) {
	ts := newTestServer(t, 4)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/cache/a", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestHandler_RequestID 測試每個響應都帶有 X-Request-ID
func TestHandler_RequestID(t *testing.T) {
	ts := newTestServer(t, 4)

	resp, err := http.Get(ts.URL + "/api/v1/cache")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

// TestHandler_Health 測試健康檢查
func TestHandler_Health(t *testing.T) {
	ts := newTestServer(t, 4)

	status, body := doRequest(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

// TestHandler_ManyKeys 測試大量寫入後 size 不超過容量
func TestHandler_ManyKeys(t *testing.T) {
	const capacity = 16
	ts := newTestServer(t, capacity)

	for i := range 100 {
		put(t, ts, fmt.Sprintf("key-%d", i), float64(i))
	}

	status, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/cache", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(capacity), body["size"])
	assert.Len(t, body["keys"], capacity)
}
