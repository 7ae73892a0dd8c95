package wg

import (
	"sync"
	"time"

	"github.com/YiuTerran/go-director/base/log"
	"github.com/samber/lo"
	"go.uber.org/atomic"
)

/**  可以监控还剩多少job的waiter
  *  @author tryao
  *  @date 2022/04/28 17:04
**/

const defaultReportInterval = 3 * time.Second

type WaitGroup struct {
	real     *sync.WaitGroup
	cnt      atomic.Int64
	name     string
	warnCnt  atomic.Int64
	errCnt   atomic.Int64
	logger   log.Logger
	interval time.Duration
}

func NewWaitGroup(logger log.Logger, name ...string) *WaitGroup {
	n := "wg"
	if len(name) > 0 {
		n = name[0]
	}
	return &WaitGroup{
		name:     n,
		real:     &sync.WaitGroup{},
		logger:   lo.Ternary(logger == nil, log.Nop(), logger),
		interval: defaultReportInterval,
	}
}

func (wg *WaitGroup) SetWarnCnt(warnCnt int64) {
	wg.warnCnt.Store(warnCnt)
}

func (wg *WaitGroup) SetErrorCnt(errCnt int64) {
	wg.errCnt.Store(errCnt)
}

// SetReportInterval Wait时打印剩余任务的间隔
func (wg *WaitGroup) SetReportInterval(d time.Duration) {
	if d > 0 {
		wg.interval = d
	}
}

func (wg *WaitGroup) Current() int64 {
	return wg.cnt.Load()
}

func (wg *WaitGroup) Wait() {
	ch := make(chan struct{}, 1)
	go func() {
		wg.real.Wait()
		ch <- struct{}{}
	}()
	ticker := time.NewTicker(wg.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ch:
			return
		case <-ticker.C:
			wg.logger.Info("%s waiting %d task to be done...", wg.name, wg.Current())
		}
	}
}

func (wg *WaitGroup) Add(delta int) {
	cur := wg.cnt.Add(int64(delta))
	if threshold := wg.errCnt.Load(); threshold > 0 {
		if cur > threshold {
			wg.logger.Error("waitgroup %s wait %d, threshold:%d", wg.name, cur, threshold)
		}
	} else if threshold := wg.warnCnt.Load(); threshold > 0 {
		if cur > threshold {
			wg.logger.Warn("waitgroup %s wait %d, threshold:%d", wg.name, cur, threshold)
		}
	}
	wg.real.Add(delta)
}

func (wg *WaitGroup) Incr() {
	wg.Add(1)
}

func (wg *WaitGroup) Done() {
	wg.cnt.Add(-1)
	wg.real.Done()
}
