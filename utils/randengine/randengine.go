// 随机数引擎，包装了golang.org/x/exp/rand，作为显式传递的随机上下文使用
package randengine

import (
	"flag"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：仿真中所有随机选择（生成位置、目标采样等）都从显式传入的Engine取数，保证同种子可复现
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
// 参数：seed-随机数种子（会叠加命令行的rand.seed_offset）
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// NewFromSettings 根据配置创建随机数引擎
// 参数：random-为true时使用当前时间作为种子，否则使用seed
func NewFromSettings(seed uint64, random bool) *Engine {
	if random {
		seed = uint64(time.Now().UnixNano())
	}
	return New(seed)
}

// Fork 派生一个子引擎
// 说明：子引擎的种子取自父引擎的下一个随机数，派生顺序固定时结果可复现
func (e *Engine) Fork() *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(e.Uint64()))}
}

// Uniform 在[lo, hi)内均匀采样
func (e *Engine) Uniform(lo, hi float64) float64 {
	if hi < lo {
		panic(fmt.Sprintf("randengine: Uniform: hi %v < lo %v", hi, lo))
	}
	return lo + (hi-lo)*e.Float64()
}

// DiscreteDistribution 按给定权重抽取下标（非线程安全）
// 说明：权重为空或总和不为正时panic
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	random := .0
	for _, w := range weight {
		if w < 0 {
			panic(fmt.Sprintf("randengine: DiscreteDistribution: negative weight %v", w))
		}
		random += w
	}
	if random <= 0 {
		panic("randengine: DiscreteDistribution: weights sum to zero")
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	return int32(len(weight) - 1)
}

// PTrue 以概率p返回true（非线程安全），p不在[0,1]时panic
func (e *Engine) PTrue(p float64) bool {
	if p < 0 || p > 1 {
		panic(fmt.Sprintf("randengine: PTrue: invalid probability %v", p))
	}
	return e.Float64() < p
}

// PTrueSafe PTrue的线程安全版本
func (e *Engine) PTrueSafe(p float64) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.PTrue(p)
}

// IntnSafe 随机生成[0, n)的整数（线程安全）
func (e *Engine) IntnSafe(n int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// Float64Safe 随机生成[0.0, 1.0)的浮点数（线程安全）
func (e *Engine) Float64Safe() float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64()
}
