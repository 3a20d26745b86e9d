// Package server 把 LRU 快取包裝成 HTTP 服務。
//
// 教學重點：
//
//  1. 使用 net/http 標準庫（不依賴框架）
//
//  2. Go 1.22+ 的增強路由功能：
//     - 支持方法路由：GET、PUT、DELETE
//     - 支持路徑參數：/{key}
//     - 無需第三方庫！
//
//  3. 並發邊界：
//     LRU 快取本身不加鎖（Get 也會改動存取順序，讀即是寫）。
//     HTTP handler 是天然的多執行緒呼叫端，所以互斥鎖加在這一層，
//     每個公開操作整個包在鎖裡，包括讀取回傳值。
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/lru-cache/internal/cache"
	apperrors "github.com/koopa0/lru-cache/pkg/errors"
	"github.com/koopa0/lru-cache/pkg/logger"
)

// Handler HTTP 處理器
//
// Go 慣用法：
//   - 簡單的結構體
//   - 依賴注入（cache、logger）
//   - 方法接收器提供 HTTP handler 函數
type Handler struct {
	mu     sync.Mutex // 保護 cache 的所有操作（快取本身不加鎖）
	cache  cache.Cache[string, any]
	logger *slog.Logger
}

// New 創建 Handler 實例
func New(c cache.Cache[string, any], logger *slog.Logger) *Handler {
	return &Handler{
		cache:  c,
		logger: logger,
	}
}

// Routes 設置路由
//
// 中間件鏈：
//   recovery → requestID → logger → 業務處理
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 單一 key 的操作
	mux.HandleFunc("GET /api/v1/cache/{key}", h.withMiddleware(h.get))
	mux.HandleFunc("GET /api/v1/cache/{key}/peek", h.withMiddleware(h.peek))
	mux.HandleFunc("GET /api/v1/cache/{key}/exists", h.withMiddleware(h.exists))
	mux.HandleFunc("PUT /api/v1/cache/{key}", h.withMiddleware(h.set))
	mux.HandleFunc("DELETE /api/v1/cache/{key}", h.withMiddleware(h.delete))

	// 整體操作
	mux.HandleFunc("GET /api/v1/cache", h.withMiddleware(h.list))
	mux.HandleFunc("DELETE /api/v1/cache", h.withMiddleware(h.clear))
	mux.HandleFunc("GET /api/v1/stats", h.withMiddleware(h.stats))

	// 健康檢查
	mux.HandleFunc("GET /health", h.health)

	return mux
}

// withMiddleware 應用中間件鏈
func (h *Handler) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return h.recovery(h.requestID(h.logRequest(next)))
}

// get 讀取快取值（命中會把項目標記為最近使用）
//
// API: GET /api/v1/cache/{key}
// Response: {"key": "...", "value": ...}
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.errorJSON(w, apperrors.ErrInvalidKey, http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	value, ok := h.cache.Get(key)
	h.mu.Unlock()

	if !ok {
		h.errorJSON(w, apperrors.ErrKeyNotFound, http.StatusNotFound)
		return
	}

	h.writeJSON(w, map[string]any{"key": key, "value": value}, http.StatusOK)
}

// peek 讀取快取值，但不改變存取順序
//
// API: GET /api/v1/cache/{key}/peek
func (h *Handler) peek(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.errorJSON(w, apperrors.ErrInvalidKey, http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	value, ok := h.cache.Peek(key)
	h.mu.Unlock()

	if !ok {
		h.errorJSON(w, apperrors.ErrKeyNotFound, http.StatusNotFound)
		return
	}

	h.writeJSON(w, map[string]any{"key": key, "value": value}, http.StatusOK)
}

// exists 檢查 key 是否在快取中（無副作用）
//
// API: GET /api/v1/cache/{key}/exists
// Response: {"key": "...", "cached": true}
func (h *Handler) exists(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.errorJSON(w, apperrors.ErrInvalidKey, http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	cached := h.cache.Contains(key)
	h.mu.Unlock()

	h.writeJSON(w, map[string]any{"key": key, "cached": cached}, http.StatusOK)
}

// set 寫入快取值
//
// API: PUT /api/v1/cache/{key}
// Body: {"value": ...}
// Response: 204 No Content
func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.errorJSON(w, apperrors.ErrInvalidKey, http.StatusBadRequest)
		return
	}

	var req struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorJSON(w, apperrors.ErrInvalidBody, http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.cache.Set(key, req.Value)
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// delete 刪除快取值
//
// API: DELETE /api/v1/cache/{key}
// Response: 204 No Content（不存在時 404）
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.errorJSON(w, apperrors.ErrInvalidKey, http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	deleted := h.cache.Delete(key)
	h.mu.Unlock()

	if !deleted {
		h.errorJSON(w, apperrors.ErrKeyNotFound, http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// list 列出快取概況
//
// API: GET /api/v1/cache
// Response: {"keys": [...], "size": 2, "capacity": 1024, "front": "...", "back": "..."}
//
// keys 按存取順序排列（最近使用在前），front/back 是頭尾的 key。
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	keys := h.cache.Keys()
	size := h.cache.Len()
	capacity := h.cache.Cap()
	front, hasFront := h.cache.Front()
	back, hasBack := h.cache.Back()
	h.mu.Unlock()

	resp := map[string]any{
		"keys":     keys,
		"size":     size,
		"capacity": capacity,
	}
	if hasFront {
		resp["front"] = front.Key
	}
	if hasBack {
		resp["back"] = back.Key
	}

	h.writeJSON(w, resp, http.StatusOK)
}

// clear 清空快取（統計計數器保留）
//
// API: DELETE /api/v1/cache
// Response: 204 No Content
func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.cache.Clear()
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// stats 獲取統計計數器
//
// API: GET /api/v1/stats
// Response: {"hits": 1, "misses": 2, "updates": 0, "bounces": 1}
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	s := h.cache.GetStats()
	h.mu.Unlock()

	h.writeJSON(w, map[string]any{
		"hits":    s.Hits,
		"misses":  s.Misses,
		"updates": s.Updates,
		"bounces": s.Bounces,
	}, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// === 工具函數 ===

// writeJSON 寫入 JSON 響應
func (h *Handler) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode json failed", "error", err)
	}
}

// errorJSON 寫入錯誤響應（統一格式）
func (h *Handler) errorJSON(w http.ResponseWriter, appErr *apperrors.AppError, status int) {
	h.writeJSON(w, map[string]any{"error": appErr}, status)
}

// === 中間件 ===

// requestID 為每個請求產生唯一 ID
//
// 用途：
//   - 日誌關聯（同一請求的所有日誌帶相同 request_id）
//   - 回應 X-Request-ID header，方便客戶端回報問題
func (h *Handler) requestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)

		ctx := logger.WithRequestID(r.Context(), id)
		next(w, r.WithContext(ctx))
	}
}

// logRequest 記錄請求日誌
//
// 記錄內容：
//   - 請求方法、路徑
//   - 響應狀態碼、耗時
//   - 客戶端 IP
func (h *Handler) logRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以捕獲狀態碼
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(wrapped, r)

		duration := time.Since(start)
		h.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", duration,
			"ip", r.RemoteAddr,
		)
	}
}

// recovery 恢復 panic
//
// 防止單個請求的 panic 導致整個服務崩潰
func (h *Handler) recovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("panic recovered",
					"error", err,
					"path", r.URL.Path,
				)
				h.errorJSON(w, apperrors.New(apperrors.ErrCodeInternal, "internal server error"), http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 http.ResponseWriter 以捕獲狀態碼
//
// Go 慣用法：
//   - 組合（embedded field）
//   - 攔截 WriteHeader 方法
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader 攔截狀態碼
func (w *responseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

// Write 確保 WriteHeader 被調用
func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
