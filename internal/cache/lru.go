// Package cache 實作固定容量的 LRU 快取。
package cache

import "iter"

// nilHandle 表示「沒有節點」的 handle 值。
const nilHandle = -1

// LRU 實作 Least Recently Used 快取淘汰演算法。
//
// 演算法原理：
//   最近最少使用的資料最先被淘汰
//   使用雙向鏈結順序 + HashMap 實作
//
// 資料結構：
//   - entry arena：所有節點存放在一個 slice 中，以整數 handle 定位
//   - 雙向鏈結順序：每個節點以 prev/next handle 維護存取順序（頭部為最近使用）
//   - HashMap：key -> handle，快速查找（O(1) 時間複雜度）
//
// 為什麼用 arena + handle 而不是指標鏈表？
//   - handle 在節點被淘汰/刪除前永遠有效，index 不會指到失效的節點
//   - 節點集中存放，對 GC 友善
//   - 所有順序變更都經過 linkFront / unlink / evictBack 三個內部原語，
//     index 與鏈結順序不會各自修改而失去一致性
//
// 一致性不變量（任何公開操作結束後皆成立）：
//   - 項目數 <= capacity
//   - index 的 key 集合 == 鏈結順序上的 key 集合
//   - 每個 key 最多出現一次
//
// 時間複雜度：
//   - Get: O(1)
//   - Set: O(1)
//   - 淘汰: O(1)
//
// 空間複雜度：O(n)，n 為容量
//
// 並發注意：
//   LRU 本身不做任何鎖，所有操作假設單一執行緒呼叫。
//   Get 會改動鏈結順序（讀也是寫），多執行緒使用時，
//   呼叫端必須在每個公開操作外圍自行加鎖（見 internal/server 的用法）。
type LRU[K comparable, V any] struct {
	capacity int           // 容量（建構後不可變）
	entries  []entry[K, V] // entry arena，handle 即 slice 索引
	index    map[K]int     // key -> handle
	head     int           // 最近使用（MRU）的 handle
	tail     int           // 最久未使用（LRU）的 handle
	free     []int         // 已釋放、可重用的 handle
	stats    Stats
}

// entry 是 arena 中的節點。
//
// prev/next 是 handle 而非指標，nilHandle 表示鏈結端點。
type entry[K comparable, V any] struct {
	key   K
	value V
	prev  int
	next  int
}

// Entry 是對外回傳的 (key, value) 快照。
//
// 注意：這是複製出來的值，不是快取內部節點。
// 快取之後的任何寫入操作（Get/Set/Delete/Clear）都不會反映在已回傳的 Entry 上。
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Stats 是快取的統計計數器。
//
// 四個計數器只增不減，除了重建快取外不會歸零（Clear 也不會）。
// Peek 與 Contains 不影響任何計數器。
type Stats struct {
	Hits    uint64 // Get 命中次數
	Misses  uint64 // Get 未命中次數
	Updates uint64 // Set 更新既有 key 的次數
	Bounces uint64 // 因容量已滿而淘汰的次數
}

// NewLRU 建立新的 LRU 快取。
//
// 參數：
//   capacity: 快取容量（最多儲存多少項目）
//
// 行為：
//   - capacity 為 0 是合法配置：任何 Set 都立即淘汰，什麼都不保留
//   - 負數視同 0
//   - 容量建構後不可調整
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &LRU[K, V]{
		capacity: capacity,
		index:    make(map[K]int),
		head:     nilHandle,
		tail:     nilHandle,
	}
}

// Get 取得快取值。
//
// 返回：
//   value: 快取值（未命中時為零值）
//   ok: 是否命中
//
// 行為：
//   命中時，將該項目移到順序頭部（標記為最近使用），並增加 Hits；
//   未命中時增加 Misses，除此之外沒有任何副作用。
func (c *LRU[K, V]) Get(key K) (V, bool) {
	h, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.stats.Hits++
	c.unlink(h)
	c.linkFront(h)
	return c.entries[h].value, true
}

// Peek 取得快取值，但不改變存取順序。
//
// 與 Get 的差別：
//   - 不會把項目移到頭部
//   - 不影響 Hits/Misses 計數器
//
// 用途：檢視快取內容而不干擾淘汰順序（監控、除錯）。
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	h, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return c.entries[h].value, true
}

// Set 設定快取值。
//
// 行為：
//   1. 如果 key 已存在：更新值並移到頭部，增加 Updates。
//      項目總數不變，所以更新永遠不會觸發淘汰。
//   2. 如果 key 不存在：
//      - 容量已滿：先淘汰尾部項目（最久未使用），增加 Bounces
//      - 新增項目到頭部，寫入 index
//
// 容量為 0 的特例：
//   等同於「插入後立即被淘汰」——增加 Bounces，不保留任何東西。
func (c *LRU[K, V]) Set(key K, value V) {
	if h, ok := c.index[key]; ok {
		c.stats.Updates++
		c.entries[h].value = value
		c.unlink(h)
		c.linkFront(h)
		return
	}

	if c.capacity == 0 {
		c.stats.Bounces++
		return
	}

	if len(c.index) == c.capacity {
		c.evictBack()
	}

	h := c.alloc(key, value)
	c.index[key] = h
	c.linkFront(h)
}

// Delete 刪除快取項目。
//
// 返回：該 key 原本是否存在（刪除不存在的 key 是冪等操作）。
//
// 注意：主動刪除不是淘汰，不影響任何計數器。
func (c *LRU[K, V]) Delete(key K) bool {
	h, ok := c.index[key]
	if !ok {
		return false
	}
	c.remove(h)
	return true
}

// Contains 檢查 key 是否在快取中。
//
// 不改變存取順序、不影響計數器。
// 語意上等同 Peek 後檢查 ok，但不需要複製 value。
func (c *LRU[K, V]) Contains(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Len 返回當前快取項目數量。
func (c *LRU[K, V]) Len() int {
	return len(c.index)
}

// Cap 返回快取容量（建構時設定，不可變）。
func (c *LRU[K, V]) Cap() int {
	return c.capacity
}

// Empty 返回快取是否為空。
func (c *LRU[K, V]) Empty() bool {
	return len(c.index) == 0
}

// Front 返回最近使用的項目快照。
//
// 返回：
//   entry: (key, value) 快照
//   ok: 快取為空時為 false（此時 entry 為零值）
func (c *LRU[K, V]) Front() (Entry[K, V], bool) {
	if c.head == nilHandle {
		return Entry[K, V]{}, false
	}
	e := &c.entries[c.head]
	return Entry[K, V]{Key: e.key, Value: e.value}, true
}

// Back 返回最久未使用的項目快照（下一個被淘汰的候選）。
//
// 返回：
//   entry: (key, value) 快照
//   ok: 快取為空時為 false（此時 entry 為零值）
func (c *LRU[K, V]) Back() (Entry[K, V], bool) {
	if c.tail == nilHandle {
		return Entry[K, V]{}, false
	}
	e := &c.entries[c.tail]
	return Entry[K, V]{Key: e.key, Value: e.value}, true
}

// All 返回從最近到最久的惰性走訪序列。
//
// 用法：
//   for key, value := range cache.All() { ... }
//
// 走訪不改變存取順序、不影響計數器；重新 range 即重新走訪。
// 走訪期間不可呼叫任何寫入操作（Get/Set/Delete/Clear），
// 否則順序已被改動，走訪結果未定義。
func (c *LRU[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for h := c.head; h != nilHandle; h = c.entries[h].next {
			if !yield(c.entries[h].key, c.entries[h].value) {
				return
			}
		}
	}
}

// Keys 返回所有快取鍵（從最近到最久）。
//
// 用途：
//   監控、除錯、測試
func (c *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.index))
	for h := c.head; h != nilHandle; h = c.entries[h].next {
		keys = append(keys, c.entries[h].key)
	}
	return keys
}

// Clear 清空快取。
//
// 行為：
//   - 移除所有項目（index 與鏈結順序一起清空）
//   - 容量不變
//   - 統計計數器不歸零
func (c *LRU[K, V]) Clear() {
	c.entries = nil
	c.free = nil
	c.index = make(map[K]int)
	c.head = nilHandle
	c.tail = nilHandle
}

// GetStats 返回統計計數器的快照。
func (c *LRU[K, V]) GetStats() Stats {
	return c.stats
}

// === 內部原語 ===
//
// index 與鏈結順序的所有變更都必須經過以下原語，
// 避免在各呼叫點重複操作兩個結構而產生不一致。

// linkFront 把節點接到順序頭部（最近使用）。
//
// 前置條件：h 目前不在鏈結順序上。
func (c *LRU[K, V]) linkFront(h int) {
	e := &c.entries[h]
	e.prev = nilHandle
	e.next = c.head
	if c.head != nilHandle {
		c.entries[c.head].prev = h
	}
	c.head = h
	if c.tail == nilHandle {
		c.tail = h
	}
}

// unlink 把節點從鏈結順序上摘下（不動 index、不釋放 handle）。
func (c *LRU[K, V]) unlink(h int) {
	e := &c.entries[h]
	if e.prev != nilHandle {
		c.entries[e.prev].next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nilHandle {
		c.entries[e.next].prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nilHandle
	e.next = nilHandle
}

// evictBack 淘汰尾部項目（最久未使用），並增加 Bounces。
func (c *LRU[K, V]) evictBack() {
	if c.tail == nilHandle {
		return
	}
	c.stats.Bounces++
	c.remove(c.tail)
}

// remove 把節點從順序與 index 中一併移除，handle 放回 free list。
func (c *LRU[K, V]) remove(h int) {
	c.unlink(h)
	delete(c.index, c.entries[h].key)

	// 清掉 key/value，避免 arena 繼續持有已移除資料的參考
	c.entries[h] = entry[K, V]{prev: nilHandle, next: nilHandle}
	c.free = append(c.free, h)
}

// alloc 配置一個節點，優先重用 free list 中的 handle。
func (c *LRU[K, V]) alloc(key K, value V) int {
	if n := len(c.free); n > 0 {
		h := c.free[n-1]
		c.free = c.free[:n-1]
		c.entries[h] = entry[K, V]{key: key, value: value, prev: nilHandle, next: nilHandle}
		return h
	}
	c.entries = append(c.entries, entry[K, V]{key: key, value: value, prev: nilHandle, next: nilHandle})
	return len(c.entries) - 1
}
