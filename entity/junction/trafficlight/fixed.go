package trafficlight

import (
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/lanesim/entity"
)

// fixedRuntime 固定配时信号灯运行时数据
type fixedRuntime struct {
	step       int32
	totalTime  float64
	remainingT float64
}

// FixedTime 固定配时信号灯
// 功能：按程序中的相位顺序与时长循环切换
type FixedTime struct {
	program    *Program
	approaches []IApproach

	timeBeforeChange [][]float64 // [进口道][相位]：该相位结束后同一状态还会持续的时间
	snapshot         fixedRuntime
	runtime          fixedRuntime
	ok               bool
	okBuffer         bool
}

// NewFixedTime 创建固定配时信号灯
// 参数：offset-起始相位（用于错开相邻路口）
func NewFixedTime(program *Program, approaches []IApproach, offset int) (*FixedTime, error) {
	if len(program.Phases) == 0 {
		return nil, fmt.Errorf("empty traffic light program")
	}
	for _, p := range program.Phases {
		if len(p.States) != len(approaches) {
			return nil, fmt.Errorf("number of approaches %d and traffic light states %d does not match", len(approaches), len(p.States))
		}
		if p.Duration <= 0 {
			return nil, fmt.Errorf("non-positive phase duration %v", p.Duration)
		}
	}
	step := int32(offset % len(program.Phases))
	l := &FixedTime{
		program:    program,
		approaches: approaches,
		runtime: fixedRuntime{
			step:       step,
			totalTime:  program.Phases[step].Duration,
			remainingT: program.Phases[step].Duration,
		},
		ok:       true,
		okBuffer: true,
	}
	l.computeTimeBeforeChange()
	l.snapshot = l.runtime
	return l, nil
}

// computeTimeBeforeChange 计算每个进口道在每个相位结束后，同一状态还会延续的时间
// 算法说明：
// 1. 从后往前遍历相位，后一相位状态相同时累加其时长
// 2. 所有相位状态都相同的进口道设为无穷
// 3. 首尾相位状态相同时，把首部连续段的时长加到尾部连续段上（循环）
func (l *FixedTime) computeTimeBeforeChange() {
	phases := l.program.Phases
	numPhases := len(phases)
	l.timeBeforeChange = make([][]float64, len(l.approaches))
	for i := range l.approaches {
		time := make([]float64, numPhases)
		allTheSame := true
		for k := numPhases - 2; k >= 0; k-- {
			if phases[k+1].States[i] == phases[k].States[i] {
				time[k] = time[k+1] + phases[k+1].Duration
			} else {
				allTheSame = false
			}
		}
		if allTheSame {
			for k := range time {
				time[k] = mathutil.INF
			}
		} else if first := phases[0].States[i]; phases[numPhases-1].States[i] == first {
			t0 := time[0] + phases[0].Duration
			for k := numPhases - 1; k >= 0 && phases[k].States[i] == first; k-- {
				time[k] += t0
			}
		}
		l.timeBeforeChange[i] = time
	}
}

// Prepare 写入snapshot并把当前相位写入各进口道
func (l *FixedTime) Prepare() {
	l.ok = l.okBuffer
	l.snapshot = l.runtime
	if !l.ok {
		for _, a := range l.approaches {
			a.SetLight(entity.LightGreen, mathutil.INF, mathutil.INF)
		}
		return
	}
	p := l.program.Phases[l.snapshot.step]
	for i, a := range l.approaches {
		extra := l.timeBeforeChange[i][l.snapshot.step]
		a.SetLight(p.States[i], l.snapshot.totalTime+extra, l.snapshot.remainingT+extra)
	}
}

// Update 推进相位
func (l *FixedTime) Update(dt float64) {
	if !l.ok {
		return
	}
	l.runtime.remainingT -= dt
	if l.runtime.remainingT > 0 {
		return
	}
	for l.runtime.remainingT <= 0 {
		l.runtime.step = (l.runtime.step + 1) % int32(len(l.program.Phases))
		l.runtime.remainingT += l.program.Phases[l.runtime.step].Duration
	}
	l.runtime.totalTime = l.program.Phases[l.runtime.step].Duration
}

func (l *FixedTime) Step() int32 { return l.snapshot.step }

func (l *FixedTime) RemainingTime() float64 { return l.snapshot.remainingT }

func (l *FixedTime) Ok() bool { return l.ok }

func (l *FixedTime) SetOk(ok bool) { l.okBuffer = ok }
