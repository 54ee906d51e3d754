// 最大压力信号灯：不按固定顺序切换，而是在每个相位结束后计算所有相位的压力，选取压力最大的相位
package trafficlight

import (
	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/utils/container"
)

// MaxPressureTiming 最大压力算法的时间参数
type MaxPressureTiming struct {
	Phase     float64 // 相位时间
	Yellow    float64 // 黄灯时间
	AllRed    float64 // 全红时间，0为不插入全红
	MaxRepeat int     // 同一相位最多连续重复的次数
}

// mpRuntime 最大压力信号灯运行时数据
type mpRuntime struct {
	index            int                   // 当前相位
	repeatCount      int                   // 当前相位重复的次数
	totalTime        float64               // 当前相位总时长
	remainingT       float64               // 当前相位剩余时间
	transitionPhases [][]entity.LightState // 过渡相位：黄灯、全红
	transitionTimes  []float64             // 过渡相位持续时长
	nextIndex        int                   // 过渡结束后的下一个相位
}

// MaxPressure 最大压力信号灯
// 功能：根据各进口道排队车辆数动态选择绿灯相位
type MaxPressure struct {
	phases     [][]entity.LightState // 可供选择的相位（只包含绿灯与红灯）
	approaches []IApproach
	timing     MaxPressureTiming

	snapshotRemainingT float64
	runtime            mpRuntime
	ok                 bool
	okBuffer           bool
}

// NewMaxPressure 创建最大压力信号灯
// 说明：少于两个相位时没有信控，始终全绿
func NewMaxPressure(phases [][]entity.LightState, approaches []IApproach, timing MaxPressureTiming) *MaxPressure {
	return &MaxPressure{
		phases:     phases,
		approaches: approaches,
		timing:     timing,
		runtime:    mpRuntime{remainingT: timing.Phase, totalTime: timing.Phase, repeatCount: 1},
		ok:         true,
		okBuffer:   true,
	}
}

// Prepare 把当前相位（或过渡相位）写入各进口道
func (l *MaxPressure) Prepare() {
	l.ok = l.okBuffer
	l.snapshotRemainingT = l.runtime.remainingT
	if len(l.phases) < 2 || !l.ok {
		for _, a := range l.approaches {
			a.SetLight(entity.LightGreen, mathutil.INF, mathutil.INF)
		}
		return
	}
	if len(l.runtime.transitionPhases) > 0 {
		phase := l.runtime.transitionPhases[0]
		nextPhase := l.phases[l.runtime.nextIndex]
		if len(l.runtime.transitionPhases) > 1 {
			nextPhase = l.runtime.transitionPhases[1]
		}
		for i, a := range l.approaches {
			// 下个相位仍为绿灯时把下个相位的时间也算上
			if phase[i] == entity.LightGreen && nextPhase[i] == entity.LightGreen {
				a.SetLight(phase[i], l.runtime.totalTime+l.timing.Phase, l.runtime.remainingT+l.timing.Phase)
			} else {
				a.SetLight(phase[i], l.runtime.totalTime, l.runtime.remainingT)
			}
		}
		return
	}
	phase := l.phases[l.runtime.index]
	for i, a := range l.approaches {
		a.SetLight(phase[i], l.runtime.totalTime, l.runtime.remainingT)
	}
}

// Update 推进相位
// 算法说明：
// 1. 当前相位未结束时不做任何事
// 2. 过渡相位结束后进入下一过渡相位或选定的相位
// 3. 正常相位结束时计算每个相位绿灯进口道的压力和，取压力最大的相位
// 4. 最大压力相位未变化且未达到最大重复次数则延长当前相位，否则切换到压力次大的相位
// 5. 切换时生成黄灯与全红过渡相位
func (l *MaxPressure) Update(dt float64) {
	if len(l.phases) < 2 || !l.ok {
		return
	}
	l.runtime.remainingT -= dt
	if l.runtime.remainingT > 0 {
		return
	}
	switch {
	case len(l.runtime.transitionPhases) == 1:
		l.runtime.index = l.runtime.nextIndex
		l.runtime.remainingT += l.timing.Phase
		l.runtime.transitionPhases = nil
		l.runtime.transitionTimes = nil
	case len(l.runtime.transitionPhases) > 1:
		l.runtime.transitionTimes = l.runtime.transitionTimes[1:]
		l.runtime.transitionPhases = l.runtime.transitionPhases[1:]
		l.runtime.remainingT += l.runtime.transitionTimes[0]
	default:
		l.choosePhase()
	}
	if l.runtime.remainingT <= 0 {
		log.Warnf("max pressure traffic light remaining time %f <= 0", l.runtime.remainingT)
	}
	l.runtime.totalTime = l.runtime.remainingT
}

func (l *MaxPressure) choosePhase() {
	pressure := lo.Map(l.approaches, func(a IApproach, _ int) float64 {
		return a.Pressure()
	})
	heap := container.NewPriorityQueue[int]()
	for i, phase := range l.phases {
		p := 0.
		for j, state := range phase {
			if state == entity.LightGreen {
				p += pressure[j]
			}
		}
		heap.Push(i, -p) // 小顶堆，压力越大越靠前
	}
	heap.Heapify()
	maxIndex, _ := heap.HeapPop()
	if maxIndex == l.runtime.index {
		if l.runtime.repeatCount >= l.timing.MaxRepeat {
			maxIndex, _ = heap.HeapPop()
		} else {
			l.runtime.remainingT += l.timing.Phase
			l.runtime.repeatCount++
			return
		}
	}
	l.runtime.nextIndex = maxIndex
	l.runtime.repeatCount = 1

	cur, next := l.phases[l.runtime.index], l.phases[maxIndex]
	yellowPhase := make([]entity.LightState, len(l.approaches))
	allRedPhase := make([]entity.LightState, len(l.approaches))
	hasAllRed := false
	copy(yellowPhase, cur)
	copy(allRedPhase, next)
	for i, state := range cur {
		if state == entity.LightGreen && next[i] == entity.LightRed {
			yellowPhase[i] = entity.LightYellow
		}
		if state == entity.LightRed && next[i] == entity.LightGreen {
			allRedPhase[i] = entity.LightRed
			hasAllRed = true
		}
	}
	l.runtime.transitionPhases = [][]entity.LightState{yellowPhase}
	l.runtime.transitionTimes = []float64{l.timing.Yellow}
	if hasAllRed && l.timing.AllRed > 0 {
		l.runtime.transitionPhases = append(l.runtime.transitionPhases, allRedPhase)
		l.runtime.transitionTimes = append(l.runtime.transitionTimes, l.timing.AllRed)
	}
	l.runtime.remainingT += l.runtime.transitionTimes[0]
}

func (l *MaxPressure) Step() int32 { return -1 }

func (l *MaxPressure) RemainingTime() float64 { return l.snapshotRemainingT }

func (l *MaxPressure) Ok() bool { return l.ok }

func (l *MaxPressure) SetOk(ok bool) { l.okBuffer = ok }
