// 输出：车辆轨迹与生成进度写入SQLite，路网车道中心线导出为WKT
package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/utils/dispatcher"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logrus.WithField("module", "output")

const queueSize = 64

// VehicleState 车辆状态记录，每个输出步每辆车一行
type VehicleState struct {
	ID      uint    `gorm:"primarykey"`
	Step    int32   `gorm:"index"`
	T       float64
	Vehicle int32 `gorm:"index"`
	Type    string `gorm:"size:63"`
	X, Y    float64
	Heading float64
	V       float64
	Lane    int32
	S       float64
	Phase   string `gorm:"size:15"`
	Err     string `gorm:"size:31"`
}

// Population 生成器进度记录
type Population struct {
	ID        uint `gorm:"primarykey"`
	Ticks     int
	Generated int
	Current   int
	Total     int
	Error     bool
}

// Models 全部表
var Models = []any{&VehicleState{}, &Population{}}

// Recorder SQLite记录器
// 功能：订阅VehiclesPopulated与TickCompleted事件并异步写库
// 说明：写库错误只保留第一个，由Err返回，不影响仿真
type Recorder struct {
	db   *gorm.DB
	subs []int
	d    *dispatcher.Dispatcher

	mu  sync.Mutex
	err error
}

// Open 打开（或创建）SQLite文件并建表
func Open(path string) (*Recorder, error) {
	if path == "" {
		return nil, errors.New("output: empty sqlite path")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("output: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("output: %s: %w", pragma, err)
		}
	}
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("output: migrate: %w", err)
	}
	log.Infof("recording to %s", path)
	return &Recorder{db: db}, nil
}

// Attach 在分发器上订阅仿真事件
// 说明：处理在独立协程中进行，分发器Close后队列中的事件全部写完
func (r *Recorder) Attach(d *dispatcher.Dispatcher) {
	r.d = d
	opts := []dispatcher.Option{
		dispatcher.FromPublisher(entity.PublisherSimulation),
		dispatcher.Buffered(queueSize),
	}
	r.subs = append(r.subs,
		d.Register(entity.EventTickCompleted, r.onTick, opts...),
		d.Register(entity.EventVehiclesPopulated, r.onPopulated, opts...),
	)
}

func (r *Recorder) onTick(_ string, e dispatcher.Event) {
	ev, ok := e.(entity.TickCompleted)
	if !ok || len(ev.Vehicles) == 0 {
		return
	}
	rows := make([]VehicleState, len(ev.Vehicles))
	for i, v := range ev.Vehicles {
		rows[i] = VehicleState{
			Step:    ev.Step,
			T:       ev.T,
			Vehicle: v.ID,
			Type:    v.Type,
			X:       v.X,
			Y:       v.Y,
			Heading: v.Heading,
			V:       v.V,
			Lane:    int32(v.Lane),
			S:       v.S,
			Phase:   v.Phase.String(),
			Err:     v.Err.String(),
		}
	}
	r.fail(r.db.Create(&rows).Error)
}

func (r *Recorder) onPopulated(_ string, e dispatcher.Event) {
	ev, ok := e.(entity.VehiclesPopulated)
	if !ok {
		return
	}
	r.fail(r.db.Create(&Population{
		Ticks:     ev.Ticks,
		Generated: ev.Generated,
		Current:   ev.Current,
		Total:     ev.Total,
		Error:     ev.Error,
	}).Error)
}

func (r *Recorder) fail(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		log.Errorf("write failed: %v", err)
		r.err = err
	}
}

// Err 第一个写库错误
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// DB 底层数据库连接（查询用）
func (r *Recorder) DB() *gorm.DB {
	return r.db
}

// Detach 取消订阅，返回前已入队的事件全部写完
func (r *Recorder) Detach() {
	if r.d == nil {
		return
	}
	for _, id := range r.subs {
		r.d.Unregister(id)
	}
	r.subs = nil
	r.d = nil
}

// Close 取消订阅并关闭数据库
func (r *Recorder) Close() error {
	r.Detach()
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return errors.Join(r.Err(), sqlDB.Close())
}
