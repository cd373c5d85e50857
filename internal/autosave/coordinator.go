// Package autosave 实现编辑会话的防抖落盘协调器。
//
// 每次编辑立即应用到内存副本，但落盘被推迟：编辑后等待一个防抖窗口，
// 窗口内的后续编辑会重置计时。保存进行中收到的编辑不会触发并发写，
// 而是在当前保存结束后补一轮。
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"resumeforge/internal/resume"
)

// ErrClosed 表示会话已结束，不再接受编辑。
var ErrClosed = errors.New("autosave: session closed")

// Status 是协调器对外可见的保存状态。
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Saver 是协调器的落盘出口，通常由 store.Store.Put 满足。
type Saver interface {
	Save(ctx context.Context, r *resume.Resume) error
}

// SaverFunc 把普通函数适配成 Saver。
type SaverFunc func(ctx context.Context, r *resume.Resume) error

func (f SaverFunc) Save(ctx context.Context, r *resume.Resume) error { return f(ctx, r) }

// Coordinator 管理单份简历在一个编辑会话内的自动保存。
// 并发安全；一个会话一个实例。
type Coordinator struct {
	saver    Saver
	interval time.Duration
	onStatus func(Status, error)

	mu       sync.Mutex
	doc      resume.Resume
	timer    *time.Timer
	inFlight bool
	followUp bool
	flushNow bool
	status   Status
	closed   bool
}

// Option 配置协调器。
type Option func(*Coordinator)

// WithInterval 覆盖默认 2 秒的防抖窗口。
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

// WithStatusFunc 注册状态回调。回调在锁外调用，可安全写 websocket。
func WithStatusFunc(fn func(Status, error)) Option {
	return func(c *Coordinator) { c.onStatus = fn }
}

// New 以初始文档快照创建协调器。
func New(initial resume.Resume, saver Saver, opts ...Option) *Coordinator {
	c := &Coordinator{
		saver:    saver,
		interval: 2 * time.Second,
		doc:      initial,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot 返回当前内存文档的副本。
func (c *Coordinator) Snapshot() resume.Resume {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Status 返回当前保存状态。
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Update 立即把编辑应用到内存副本并重置防抖计时。
// 校验失败时内存副本保持不变，也不影响已排期的保存。
func (c *Coordinator) Update(patch resume.Patch) (resume.Resume, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.doc, ErrClosed
	}

	updated, err := resume.ApplyPatch(c.doc, patch, time.Now())
	if err != nil {
		return c.doc, err
	}
	c.doc = updated

	if c.inFlight {
		// 保存进行中：标记补一轮，当前保存结束后重新排期。
		c.followUp = true
		return updated, nil
	}
	c.arm()
	return updated, nil
}

// SaveNow 取消排期中的保存并立即落盘（显式保存、会话收尾用）。
// 若已有保存在途则不产生并发写：在途保存一结束立即补落盘，
// 不再等一个完整的防抖窗口。
func (c *Coordinator) SaveNow(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.inFlight {
		c.followUp = true
		c.flushNow = true
		c.mu.Unlock()
		return nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	return c.flush(ctx)
}

// Close 停止协调器：取消尚未触发的防抖保存，在途保存不受影响。
// 收尾前最后一瞬的编辑不保证落盘，想确保持久化需先调 SaveNow。
// 之后的 Update 会被拒绝。
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// arm 排期一次防抖保存。调用方必须持锁。
func (c *Coordinator) arm() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.interval, func() {
		c.flush(context.Background())
	})
}

// flush 执行一次落盘。同一时刻至多一个 flush 在跑。
func (c *Coordinator) flush(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.followUp = true
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.timer = nil
	snapshot := c.doc
	c.status = StatusSaving
	notify := c.onStatus
	c.mu.Unlock()

	if notify != nil {
		notify(StatusSaving, nil)
	}

	err := c.saver.Save(ctx, &snapshot)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.status = StatusError
	} else {
		c.status = StatusSaved
	}
	rearm := c.followUp && !c.closed
	immediate := rearm && c.flushNow
	c.followUp = false
	c.flushNow = false
	if rearm && !immediate {
		c.arm()
	}
	c.mu.Unlock()

	if immediate {
		// 显式保存在途中到达：当前保存一结束立即补落盘。
		go c.flush(context.Background())
	}

	if notify != nil {
		notify(c.Status(), err)
	}
	return err
}
