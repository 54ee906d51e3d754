package container

import "container/heap"

// item 优先队列元素
type item[T any] struct {
	Value    T
	Priority float64 // 越小越优先
	index    int
}

// itemHeap 实现heap.Interface的最小堆
type itemHeap[T any] []*item[T]

func (h itemHeap[T]) Len() int           { return len(h) }
func (h itemHeap[T]) Less(i, j int) bool { return h[i].Priority < h[j].Priority }
func (h itemHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap[T]) Push(x any) {
	it := x.(*item[T])
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// PriorityQueue 优先队列（最小堆）
// 功能：供A*等搜索算法使用的开放列表
type PriorityQueue[T any] struct {
	queue itemHeap[T]
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{queue: make(itemHeap[T], 0)}
}

// Len 队列长度
func (q *PriorityQueue[T]) Len() int {
	return len(q.queue)
}

// Empty 队列是否为空
func (q *PriorityQueue[T]) Empty() bool {
	return len(q.queue) == 0
}

// First 查看优先级数值最小的元素，不移除
func (q *PriorityQueue[T]) First() T {
	return q.queue[0].Value
}

// Push 追加元素但不维护堆，批量追加后需调用Heapify
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	q.queue = append(q.queue, &item[T]{Value: value, Priority: priority, index: len(q.queue)})
}

// Heapify 重新建堆
func (q *PriorityQueue[T]) Heapify() {
	heap.Init(&q.queue)
}

// HeapPush 按堆操作加入元素
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.queue, &item[T]{Value: value, Priority: priority})
}

// HeapPop 弹出优先级数值最小的元素
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	it := heap.Pop(&q.queue).(*item[T])
	return it.Value, it.Priority
}

// Reset 清空队列并保留底层空间
func (q *PriorityQueue[T]) Reset() {
	clear(q.queue)
	q.queue = q.queue[:0]
}
