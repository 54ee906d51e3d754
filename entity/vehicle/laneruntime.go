package vehicle

import (
	"fmt"
	"sort"

	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
)

// LaneRuntime 车道运行时
// 功能：记录车道上的车辆，按s坐标降序排列（下标0为最靠近车道末端的车辆）
// 说明：下标i的前车为i-1，后车为i+1
type LaneRuntime struct {
	Lane     *roadnet.Lane
	Length   float64
	MaxSpeed float64

	vehicles []*Vehicle
}

// Vehicles 按s降序排列的车辆（只读）
func (r *LaneRuntime) Vehicles() []*Vehicle {
	return r.vehicles
}

func (r *LaneRuntime) Len() int {
	return len(r.vehicles)
}

// Front 最靠近车道末端的车辆
func (r *LaneRuntime) Front() *Vehicle {
	if len(r.vehicles) == 0 {
		return nil
	}
	return r.vehicles[0]
}

// Rear 最靠近车道起点的车辆
func (r *LaneRuntime) Rear() *Vehicle {
	if len(r.vehicles) == 0 {
		return nil
	}
	return r.vehicles[len(r.vehicles)-1]
}

// Index 车辆在车道中的下标，不在车道上时返回-1
func (r *LaneRuntime) Index(v *Vehicle) int {
	for i, o := range r.vehicles {
		if o == v {
			return i
		}
	}
	return -1
}

// search 第一个s不大于给定值的车辆下标
func (r *LaneRuntime) search(s float64) int {
	return sort.Search(len(r.vehicles), func(i int) bool { return r.vehicles[i].S <= s })
}

// LeaderAt 下标i车辆的前车
func (r *LaneRuntime) LeaderAt(i int) *Vehicle {
	if i <= 0 {
		return nil
	}
	return r.vehicles[i-1]
}

// FollowerAt 下标i车辆的后车
func (r *LaneRuntime) FollowerAt(i int) *Vehicle {
	if i+1 >= len(r.vehicles) {
		return nil
	}
	return r.vehicles[i+1]
}

// Neighbors 若车辆位于s处，其在本车道上的前车与后车（排除self）
func (r *LaneRuntime) Neighbors(s float64, self *Vehicle) (leader, follower *Vehicle) {
	i := r.search(s)
	for j := i - 1; j >= 0; j-- {
		if r.vehicles[j] != self {
			leader = r.vehicles[j]
			break
		}
	}
	for j := i; j < len(r.vehicles); j++ {
		if r.vehicles[j] != self {
			follower = r.vehicles[j]
			break
		}
	}
	return
}

// insert 二分查找插入，保持降序；s相同的车辆插在已有车辆之后
func (r *LaneRuntime) insert(v *Vehicle) {
	i := sort.Search(len(r.vehicles), func(i int) bool { return r.vehicles[i].S < v.S })
	r.vehicles = append(r.vehicles, nil)
	copy(r.vehicles[i+1:], r.vehicles[i:])
	r.vehicles[i] = v
}

// remove 交换删除后对被移动的那一个位置做局部重排
func (r *LaneRuntime) remove(v *Vehicle) bool {
	i := r.Index(v)
	if i < 0 {
		return false
	}
	last := len(r.vehicles) - 1
	r.vehicles[i] = r.vehicles[last]
	r.vehicles[last] = nil
	r.vehicles = r.vehicles[:last]
	// 原末尾车辆s最小，只需向后冒泡
	for j := i; j+1 < len(r.vehicles) && r.vehicles[j].S < r.vehicles[j+1].S; j++ {
		r.vehicles[j], r.vehicles[j+1] = r.vehicles[j+1], r.vehicles[j]
	}
	return true
}

// resort 位置更新后恢复降序（插入排序，几乎有序时为线性）
func (r *LaneRuntime) resort() {
	vs := r.vehicles
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1].S < vs[j].S; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}

// check 校验排序与归属
func (r *LaneRuntime) check() error {
	for i, v := range r.vehicles {
		if v.Lane != r.Lane.ID {
			return fmt.Errorf("lane %d holds vehicle %d of lane %d", r.Lane.ID, v.ID, v.Lane)
		}
		if i > 0 && !(r.vehicles[i-1].S > v.S) {
			return fmt.Errorf("lane %d not strictly descending at %d: %v <= %v", r.Lane.ID, i, r.vehicles[i-1].S, v.S)
		}
	}
	return nil
}
