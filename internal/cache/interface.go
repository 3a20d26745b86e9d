package cache

// Cache 是快取介面，定義了 LRU 對外的完整操作面。
//
// 上層（如 internal/server）依賴介面而非具體型別，
// 之後要替換淘汰演算法時不需要改動呼叫端。
//
// 設計考量：
//   - 無 context：本地快取不需要上下文（與遠端快取/資料庫區分）
//   - 無 error：記憶體操作不會失敗，「未命中」以 ok=false 表達而非錯誤
//   - 不含鎖：介面假設單一執行緒呼叫，並發控制是呼叫端的責任
type Cache[K comparable, V any] interface {
	// Get 獲取快取值，命中時將項目標記為最近使用
	//
	// 返回：
	//   - value: 快取的值
	//   - ok: true 表示命中，false 表示未命中
	Get(key K) (value V, ok bool)

	// Peek 獲取快取值，但不改變存取順序、不影響計數器
	Peek(key K) (value V, ok bool)

	// Set 設定快取值
	//
	// 注意：如果快取已滿，移除最久未使用的項目
	Set(key K, value V)

	// Delete 刪除快取值
	//
	// 注意：刪除不存在的 key 不會報錯（冪等操作），返回是否真的刪了東西
	Delete(key K) bool

	// Contains 檢查 key 是否存在，無任何副作用
	Contains(key K) bool

	// Len 返回快取中的項目數量
	Len() int

	// Cap 返回快取容量
	Cap() int

	// Empty 返回快取是否為空
	Empty() bool

	// Front 返回最近使用的項目快照，空快取時 ok=false
	Front() (Entry[K, V], bool)

	// Back 返回最久未使用的項目快照，空快取時 ok=false
	Back() (Entry[K, V], bool)

	// Keys 返回所有快取鍵（從最近到最久）
	Keys() []K

	// Clear 清空快取（容量與統計計數器不變）
	Clear()

	// GetStats 返回統計計數器快照
	GetStats() Stats
}
