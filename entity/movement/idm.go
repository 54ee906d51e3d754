package movement

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

// stopLineGap 停车线前保留的距离（米）
const stopLineGap = 1.0

// followImpl 跟车模型核心实现
// 功能：智能驾驶模型(IDM)
// 参数：v-本车速度，vDesired-期望速度，vLeader-前车速度，gap-净间距，minGap-最小车距，headway-安全车头时距
// 返回：加速度（米/秒²），范围[-HardDecel, MaxAcc]
// 算法说明：
// 1. 间距小于等于0时紧急制动
// 2. 期望车距：s* = minGap + max(0, v*headway + v*(v-vLeader)/(2*sqrt(a*b)))
// 3. 加速度：a = MaxAcc * (1 - (v/vDesired)^delta - (s*/gap)^2)
func followImpl(p *config.IDM, v, vDesired, vLeader, gap, minGap, headway float64) float64 {
	var acc float64
	if gap <= 0 {
		acc = -mathutil.INF
	} else {
		sStar := minGap
		if v > 0 {
			sStar += math.Max(0, v*headway+v*(v-vLeader)/2/math.Sqrt(p.MaxAcc*p.ComfortDecel))
		}
		acc = p.MaxAcc * (1 - math.Pow(v/vDesired, p.Delta) - math.Pow(sStar/gap, 2))
	}
	return lo.Clamp(acc, -p.HardDecel, p.MaxAcc)
}

// Follow 以配置的最小车距与车头时距跟随前车，无前车时gap与vLeader传入mathutil.INF
func Follow(p *config.IDM, v, vDesired, vLeader, gap float64) float64 {
	return followImpl(p, v, vDesired, vLeader, gap, p.MinGap, p.Headway)
}

// StopAt 在distance处的停车线前停车
// 说明：停车不需要按跟车的车头时距预留，只预判一个步长
func StopAt(p *config.IDM, v, vDesired, distance, dt float64) float64 {
	return followImpl(p, v, vDesired, 0, distance, stopLineGap, dt)
}

// legacyAcceleration 简单运动学模型
// 算法说明：
// 1. 以最小车距为界计算在前方可用距离内停下所需的减速度
// 2. 所需减速度不小于舒适减速度时按所需减速度（不超过HardDecel）制动
// 3. 否则以MaxAcc加速到期望速度
func legacyAcceleration(p *config.IDM, v, vDesired, gap, dt float64) float64 {
	free := gap - p.MinGap
	if free <= 0 {
		return -p.HardDecel
	}
	if need := v * v / (2 * free); need >= p.ComfortDecel {
		return -math.Min(need, p.HardDecel)
	}
	return lo.Clamp((vDesired-v)/dt, -p.HardDecel, p.MaxAcc)
}

// integrate 显式欧拉积分
// 返回：下一步速度（限制在[0, limit]）与本步行驶距离（不小于0）
// 说明：速度在步内降到0时按匀减速停车距离计算位移
func integrate(v, a, dt, limit float64) (vNext, ds float64) {
	vNext = v + a*dt
	if vNext < 0 {
		ds = -v * v / (2 * a)
		vNext = 0
	} else {
		ds = v*dt + 0.5*a*dt*dt
	}
	return math.Min(vNext, limit), math.Max(ds, 0)
}

// requiredGap 变道安全间隙 max(τv + δ, minGap)
func requiredGap(p *config.LaneChange, v float64) float64 {
	return math.Max(p.SafeHeadway*v+p.SafeDistance, p.SafeMinGap)
}

// safeEntrySpeed 在gap内能以舒适减速度减到前车速度的最大速度
func safeEntrySpeed(p *config.IDM, vLeader, gap float64) float64 {
	return math.Sqrt(vLeader*vLeader + 2*p.ComfortDecel*math.Max(gap-p.MinGap, 0))
}
