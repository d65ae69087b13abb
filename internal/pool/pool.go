// 包 pool 提供有界的 CPU 工作池：HTML 解析在固定数量的 worker 上执行，
// 避免大文档解析占满并发抓取所用的 goroutine。
//
// 生命周期由调用方持有：New 创建，Close 释放（可重复调用）。
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrClosed 表示工作池已关闭。
var ErrClosed = errors.New("pool: closed")

type job struct {
	fn   func()
	done chan struct{}
	err  error
}

// Pool 为固定大小的工作池，可被任意多个 goroutine 并发使用。
type Pool struct {
	size   int
	jobs   chan *job
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New 启动 size 个 worker；size<=0 时取 GOMAXPROCS。
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		size:   size,
		jobs:   make(chan *job),
		closed: make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Size() int { return p.size }

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			p.run(j)
		case <-p.closed:
			return
		}
	}
}

func (p *Pool) run(j *job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			j.err = fmt.Errorf("pool: task panicked: %v", r)
		}
	}()
	j.fn()
}

// Do 把 fn 交给 worker 执行并等待其完成。
// 在 fn 被 worker 取走之前 ctx 取消或池关闭，则 fn 不会执行并返回对应错误。
func (p *Pool) Do(ctx context.Context, fn func()) error {
	j := &job{fn: fn, done: make(chan struct{})}
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrClosed
	}
	<-j.done
	return j.err
}

// Close 停止全部 worker 并等待正在执行的任务结束。
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.closed)
		p.wg.Wait()
	})
}
