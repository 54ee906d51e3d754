package container

import (
	"slices"
	"sync"
)

// IIncrementalItem 支持增量更新的元素接口
// 功能：让增量数组能够记录并查询元素在数组中的位置
// 说明：元素需要记录自己在数组中的下标，未加入数组时下标为-1
type IIncrementalItem interface {
	Index() int         // 元素在数组中的下标
	SetIndex(index int) // 由增量数组在Prepare时设置
}

// IncrementalItemBase 可嵌入的IIncrementalItem实现
// 功能：嵌入到智能体等结构体中即可放入增量数组
type IncrementalItemBase struct {
	index int // 元素在数组中的下标
}

// Index 元素在数组中的下标
// 返回：未生效或已删除时为-1
func (b *IncrementalItemBase) Index() int {
	return b.index
}

// SetIndex 设置元素的下标
// 参数：index-新的下标，-1表示不在数组中
func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：Add/Remove可在更新阶段并发调用，只记录到缓冲区；Prepare时统一生效
// 说明：删除采用与末尾元素交换后弹出的方式，不保持元素相对顺序
type IncrementalArray[T IIncrementalItem] struct {
	data        []T        // 已生效的元素
	add         []T        // 待添加
	remove      []T        // 待删除
	addMutex    sync.Mutex // 保护add
	removeMutex sync.Mutex // 保护remove
}

// NewIncrementalArray 创建增量数组
// 返回：空的增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:   make([]T, 0),
		add:    make([]T, 0),
		remove: make([]T, 0),
	}
}

// Len 已生效的元素数
// 说明：不包括尚未Prepare的添加
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 已生效的元素
// 功能：返回内部切片本身，供按下标并行遍历
// 说明：只读，不要在Prepare之外修改；下一次Prepare之后可能失效
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Pending 待生效的添加与删除数量
// 返回：添加数，删除数
func (a *IncrementalArray[T]) Pending() (int, int) {
	return len(a.add), len(a.remove)
}

// Add 增加元素（等到Prepare时才会真正增加）
// 参数：value-要添加的元素，下标被重置为-1
// 说明：并发安全
func (a *IncrementalArray[T]) Add(value T) {
	value.SetIndex(-1)
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	a.add = append(a.add, value)
}

// Remove 删除元素（等到Prepare时才会真正删除）
// 参数：value-要删除的元素，可以是同一批次内刚添加、尚未生效的元素
// 说明：并发安全；重复删除同一元素只生效一次
func (a *IncrementalArray[T]) Remove(value T) {
	a.removeMutex.Lock()
	defer a.removeMutex.Unlock()
	a.remove = append(a.remove, value)
}

// Prepare 执行增量操作
// 算法说明：
// 1. 同一批次内先加后删的元素直接从添加列表中剔除
// 2. 其余删除按下标从大到小处理，用末尾元素填补空位，保证填补者不会是待删除元素
// 3. 最后追加新元素并设置下标
func (a *IncrementalArray[T]) Prepare() {
	var removed []int
	for _, x := range a.remove {
		if i := x.Index(); i >= 0 && i < len(a.data) {
			removed = append(removed, i)
		} else {
			a.add = slices.DeleteFunc(a.add, func(y T) bool { return any(y) == any(x) })
		}
	}
	slices.Sort(removed)
	removed = slices.Compact(removed)
	for k := len(removed) - 1; k >= 0; k-- {
		ind := removed[k]
		last := len(a.data) - 1
		a.data[ind].SetIndex(-1)
		if ind != last {
			a.data[ind] = a.data[last]
			a.data[ind].SetIndex(ind)
		}
		var zero T
		a.data[last] = zero
		a.data = a.data[:last]
	}
	for _, x := range a.add {
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	a.add = a.add[:0]
	a.remove = a.remove[:0]
}
