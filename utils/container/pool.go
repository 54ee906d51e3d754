package container

import "fmt"

// Pool 地址稳定的对象池
// 功能：按固定大小的块分配对象，块一旦分配就不再扩容或移动，因此Get返回的指针在Put之前始终有效
// 说明：非线程安全，调用方负责同步
type Pool[T any] struct {
	blockSize int
	blocks    [][]T
	next      int  // 最后一个块中下一个未使用的位置
	free      []*T // 被归还的对象
	live      map[*T]struct{}
}

// NewPool 创建对象池
// 参数：blockSize-每个块容纳的对象数
func NewPool[T any](blockSize int) *Pool[T] {
	if blockSize <= 0 {
		panic(fmt.Sprintf("container: invalid pool block size %d", blockSize))
	}
	return &Pool[T]{blockSize: blockSize, next: blockSize, live: make(map[*T]struct{})}
}

// Get 取出一个零值对象
func (p *Pool[T]) Get() *T {
	var x *T
	if n := len(p.free); n > 0 {
		x = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		if p.next == p.blockSize {
			p.blocks = append(p.blocks, make([]T, p.blockSize))
			p.next = 0
		}
		x = &p.blocks[len(p.blocks)-1][p.next]
		p.next++
	}
	p.live[x] = struct{}{}
	return x
}

// Put 归还对象，对象被清零后可被再次取出
// 说明：x不是由本对象池取出或已经归还时panic
func (p *Pool[T]) Put(x *T) {
	if _, ok := p.live[x]; !ok {
		panic(fmt.Sprintf("container: put %p which is not live in this pool", x))
	}
	delete(p.live, x)
	var zero T
	*x = zero
	p.free = append(p.free, x)
}

// Len 当前已取出且未归还的对象数
func (p *Pool[T]) Len() int {
	return len(p.live)
}

// Cap 已分配的对象总数
func (p *Pool[T]) Cap() int {
	return len(p.blocks) * p.blockSize
}
