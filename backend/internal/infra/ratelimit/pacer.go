package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock 抽象当前时间与休眠，便于单元测试注入假时钟。
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock 是 Clock 的默认实现。
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewRealClock 返回基于系统时间的 Clock。
func NewRealClock() Clock { return realClock{} }

// Pacer 在相邻出站请求之间强制一个最小间隔，用来贴着上游的
// 请求频率上限排队，而不是事后处理 429。
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	clock    Clock
	last     time.Time
}

// NewPacer 构造请求间隔控制器，clock 为 nil 时使用系统时钟。
func NewPacer(interval time.Duration, clock Clock) *Pacer {
	if clock == nil {
		clock = realClock{}
	}
	return &Pacer{interval: interval, clock: clock}
}

// Wait 阻塞到距离上一次放行至少 interval 之后，ctx 取消时提前返回错误。
// 放行时间在等待前即被占位，并发调用会依次排队。
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	now := p.clock.Now()
	next := p.last.Add(p.interval)
	if next.Before(now) {
		next = now
	}
	p.last = next
	wait := next.Sub(now)
	p.mu.Unlock()

	return p.clock.Sleep(ctx, wait)
}
