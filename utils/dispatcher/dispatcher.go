// 事件分发器：仿真核心只依赖Emit能力，记录器、调试工具等外部协作者在这里订阅
package dispatcher

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "dispatcher")

// Event 可分发的事件
type Event interface {
	EventName() string
}

// HandlerFunc 事件处理函数，publisher为发布者名称
type HandlerFunc func(publisher string, e Event)

// Option 订阅选项
type Option func(*options)

type options struct {
	publisher  string
	bufferSize int
	logged     bool
}

// FromPublisher 只接收指定发布者的事件
func FromPublisher(name string) Option {
	return func(o *options) { o.publisher = name }
}

// Buffered 在独立协程中异步处理，队列满时阻塞发布者
func Buffered(size int) Option {
	return func(o *options) { o.bufferSize = size }
}

// Logged 分发前输出调试日志
func Logged() Option {
	return func(o *options) { o.logged = true }
}

type envelope struct {
	publisher string
	event     Event
}

type subscriber struct {
	id      int
	event   string
	opts    options
	handler HandlerFunc
	queue   chan envelope
	done    chan struct{}

	mu     sync.Mutex // 保护queue的发送与关闭
	closed bool
}

// deliver 同步调用处理函数，或放入异步队列；已关闭的订阅者丢弃事件
func (s *subscriber) deliver(env envelope) {
	if s.queue == nil {
		s.handler(env.publisher, env.event)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.queue <- env
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.queue != nil {
		close(s.queue)
	}
}

// Dispatcher 按事件名路由到所有订阅者
type Dispatcher struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]*subscriber
	wg     sync.WaitGroup
}

// New 创建分发器
func New() *Dispatcher {
	return &Dispatcher{subs: make(map[string][]*subscriber)}
}

// Register 订阅事件，返回可用于取消订阅的ID
func (d *Dispatcher) Register(event string, h HandlerFunc, opts ...Option) int {
	s := &subscriber{event: event, handler: h}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if s.opts.bufferSize > 0 {
		s.queue = make(chan envelope, s.opts.bufferSize)
		s.done = make(chan struct{})
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer close(s.done)
			for env := range s.queue {
				s.handler(env.publisher, env.event)
			}
		}()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	s.id = d.nextID
	d.subs[event] = append(d.subs[event], s)
	return s.id
}

// Unregister 取消订阅
// 说明：异步订阅者会先处理完已入队的事件，Unregister等待其退出后返回
func (d *Dispatcher) Unregister(id int) bool {
	d.mu.Lock()
	var found *subscriber
	for name, list := range d.subs {
		for i, s := range list {
			if s.id == id {
				d.subs[name] = append(list[:i:i], list[i+1:]...)
				found = s
				break
			}
		}
		if found != nil {
			break
		}
	}
	d.mu.Unlock()
	if found == nil {
		return false
	}
	found.stop()
	if found.done != nil {
		<-found.done
	}
	return true
}

// Emit 发布事件
// 说明：在锁外调用处理函数，处理函数中可以再次Emit或增删订阅；
// 与Emit并发的Unregister返回后，同步订阅者仍可能收到一次正在分发的事件
func (d *Dispatcher) Emit(publisher string, e Event) {
	d.mu.RLock()
	// 订阅列表只会被整体替换或在末尾追加，快照无需复制
	subs := d.subs[e.EventName()]
	d.mu.RUnlock()
	for _, s := range subs {
		if s.opts.publisher != "" && s.opts.publisher != publisher {
			continue
		}
		if s.opts.logged {
			log.Debugf("%s -> %s: %+v", publisher, e.EventName(), e)
		}
		s.deliver(envelope{publisher: publisher, event: e})
	}
}

// HasHandler 是否存在该事件的订阅者
func (d *Dispatcher) HasHandler(event string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[event]) > 0
}

// Close 关闭所有异步订阅者并等待队列处理完毕
func (d *Dispatcher) Close() {
	d.mu.Lock()
	var all []*subscriber
	for name, list := range d.subs {
		all = append(all, list...)
		delete(d.subs, name)
	}
	d.mu.Unlock()
	for _, s := range all {
		s.stop()
	}
	d.wg.Wait()
}
