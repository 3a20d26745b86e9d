// LRU Cache 示範服務
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koopa0/lru-cache/internal/cache"
	"github.com/koopa0/lru-cache/internal/server"
	"github.com/koopa0/lru-cache/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置檔路徑")
	flag.Parse()

	// 載入配置
	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "載入配置失敗：%v\n", err)
		os.Exit(1)
	}

	// 初始化日誌
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, "stdout", false); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日誌失敗：%v\n", err)
		os.Exit(1)
	}

	logger.Info("啟動 LRU Cache 示範服務...")

	// 示範 1：基本讀寫與淘汰
	demonstrateLRU()

	// 示範 2：統計計數器
	demonstrateStats()

	// 示範 3：走訪存取順序
	demonstrateIteration()

	// 啟動 HTTP 服務
	startHTTPServer(cfg)
}

// demonstrateLRU 展示 LRU 快取的淘汰行為。
func demonstrateLRU() {
	logger.Info("=== LRU 快取示範 ===")

	// 容量 2 的小快取，方便觀察淘汰
	lru := cache.NewLRU[string, int](2)

	lru.Set("A", 1)
	lru.Set("B", 2)
	logger.Info("已寫入 A、B", "keys", lru.Keys())

	// 存取 A（移到最前面）
	v, _ := lru.Get("A")
	logger.Info("存取 'A' 後", "value", v, "keys", lru.Keys())

	// 寫入 C（淘汰最久未使用的 B）
	lru.Set("C", 3)
	logger.Info("寫入 'C' 後", "keys", lru.Keys(), "b_cached", lru.Contains("B"))
}

// demonstrateStats 展示統計計數器。
func demonstrateStats() {
	logger.Info("=== 統計計數器示範 ===")

	lru := cache.NewLRU[string, string](2)

	lru.Set("a", "1") // 新增
	lru.Set("a", "2") // 更新
	lru.Get("a")      // 命中
	lru.Get("x")      // 未命中
	lru.Set("b", "1")
	lru.Set("c", "1") // 淘汰 a 或 b（bounce）

	stats := lru.GetStats()
	logger.Info("當前統計",
		"hits", stats.Hits,
		"misses", stats.Misses,
		"updates", stats.Updates,
		"bounces", stats.Bounces,
	)

	// Clear 不會清掉計數器
	lru.Clear()
	logger.Info("清空後統計保留", "stats", lru.GetStats(), "size", lru.Len())
}

// demonstrateIteration 展示從最近到最久的走訪。
func demonstrateIteration() {
	logger.Info("=== 走訪示範 ===")

	lru := cache.NewLRU[string, int](4)
	lru.Set("a", 1)
	lru.Set("b", 2)
	lru.Set("c", 3)
	lru.Get("a") // a 變成最近使用

	for key, value := range lru.All() {
		logger.Info("entry", "key", key, "value", value)
	}

	if front, ok := lru.Front(); ok {
		logger.Info("最近使用", "key", front.Key)
	}
	if back, ok := lru.Back(); ok {
		logger.Info("最久未使用（下一個淘汰候選）", "key", back.Key)
	}
}

// startHTTPServer 啟動 HTTP 服務。
func startHTTPServer(cfg *server.Config) {
	// HTTP handler 在自己那一層加鎖，所以這裡的快取不需要（也沒有）內部鎖
	c := cache.NewLRU[string, any](cfg.Cache.Capacity)
	handler := server.New(c, slog.Default())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	// 優雅關閉
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("正在關閉服務...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("關閉服務錯誤", "error", err)
		}
	}()

	logger.Info("服務啟動", "port", cfg.Server.Port, "capacity", cfg.Cache.Capacity)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("服務啟動失敗", "error", err)
		os.Exit(1)
	}
}
