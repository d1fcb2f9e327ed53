package service

import (
	"sync"
	"time"
)

// Timer 停止可能な遅延実行
type Timer interface {
	Stop() bool
}

// Scheduler 遅延実行の抽象（テストでは時間を手動で進める実装に差し替える）
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler time.AfterFunc を使う実装
var SystemScheduler Scheduler = systemScheduler{}

// Debouncer 静止期間が経過するまで実行を遅らせ、連続したイベントを1回にまとめる
//
// 新しいイベントが来るたびにタイマーを再スタートする（キューには積まない）。
// 世代カウンタで古いタイマーのコールバックを無効化するため、
// Stop後やTrigger後に遅れて発火したコールバックは何もしない。
type Debouncer struct {
	mu         sync.Mutex
	delay      time.Duration
	scheduler  Scheduler
	timer      Timer
	generation uint64
	stopped    bool
}

// NewDebouncer 新しいDebouncerを作成
func NewDebouncer(delay time.Duration, scheduler Scheduler) *Debouncer {
	if scheduler == nil {
		scheduler = SystemScheduler
	}
	return &Debouncer{
		delay:     delay,
		scheduler: scheduler,
	}
}

// Trigger 静止期間を再スタートし、期間満了時にfnを1回だけ実行する
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.generation++
	gen := d.generation
	d.timer = d.scheduler.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := !d.stopped && gen == d.generation
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if current {
			fn()
		}
	})
}

// Cancel 保留中の実行を取り消す（以後もTriggerは可能）
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop 保留中の実行を取り消し、以後のTriggerを無視する
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() {
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending 実行待ちのタイマーがあるか
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
