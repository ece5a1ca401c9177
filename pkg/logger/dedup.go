package logger

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Deduper collapses runs of identical log messages into one line with a
// repeat count, flushed after a short quiet period. Useful for chatty
// per-request messages like cache hits.
type Deduper struct {
	log        *zap.SugaredLogger
	flushDelay time.Duration

	mu      sync.Mutex
	lastMsg string
	count   int
	timer   *time.Timer
}

func NewDeduper(log *zap.Logger) *Deduper {
	return &Deduper{
		log:        log.WithOptions(zap.AddCallerSkip(1)).Sugar(),
		flushDelay: 2 * time.Second,
	}
}

// Infof logs at info level, merging consecutive identical messages.
func (d *Deduper) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	d.mu.Lock()
	defer d.mu.Unlock()

	if msg == d.lastMsg {
		d.count++
		d.resetTimer()
		return
	}

	d.flush()
	d.lastMsg = msg
	d.count = 1
	d.resetTimer()
}

func (d *Deduper) resetTimer() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

func (d *Deduper) flush() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.log.Info(d.lastMsg)
	} else {
		d.log.Infof("%s (%d)", d.lastMsg, d.count)
	}
	d.count = 0
	d.lastMsg = ""
}
