// Package progress shows one console bar per chat request and records how
// long each stage of it took.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker follows a request through a fixed list of stages. A nil
// *mpb.Progress gives a tracker that only keeps timings.
type Tracker struct {
	ID    string
	Label string

	bar   *mpb.Bar
	stage atomic.Value

	mu      sync.Mutex
	stages  []string
	current int
	started time.Time
	timings []time.Duration
	now     func() time.Time
	err     error
}

func New(p *mpb.Progress, id, label string, stages []string) *Tracker {
	t := &Tracker{
		ID:      id,
		Label:   label,
		stages:  stages,
		current: -1,
		now:     time.Now,
	}
	t.stage.Store("")
	if p != nil {
		t.bar = p.AddBar(int64(len(stages)),
			mpb.PrependDecorators(
				decor.Name(label, decor.WC{C: decor.DindentRight | decor.DextraSpace}),
				decor.Any(func(decor.Statistics) string { return t.Stage() }, decor.WCSyncSpaceR),
			),
			mpb.BarRemoveOnComplete(),
			mpb.AppendDecorators(
				decor.OnComplete(decor.CountersNoUnit("%d/%d"), "done"),
			),
		)
	}
	return t
}

// Stage is the name of the stage in progress. The bar decorator reads it
// from the render goroutine, so it never takes t.mu.
func (t *Tracker) Stage() string {
	return t.stage.Load().(string)
}

// closeStage records the running stage and reports whether there was one.
// Callers hold t.mu.
func (t *Tracker) closeStage(now time.Time) bool {
	if t.current < 0 || t.current >= len(t.stages) {
		return false
	}
	t.timings = append(t.timings, now.Sub(t.started))
	return true
}

// Step finishes the running stage and starts the next one.
func (t *Tracker) Step() {
	t.mu.Lock()
	now := t.now()
	closed := t.closeStage(now)
	t.current++
	t.started = now
	name := ""
	if t.current < len(t.stages) {
		name = t.stages[t.current]
	}
	t.mu.Unlock()

	t.stage.Store(name)
	if closed && t.bar != nil {
		t.bar.Increment()
	}
}

// Done finishes the running stage and completes the bar, skipping stages
// that did not apply. The bar has a fixed total, so it completes by reaching
// it; SetTotal is ignored once the total is set.
func (t *Tracker) Done() {
	t.mu.Lock()
	t.closeStage(t.now())
	t.current = len(t.stages)
	t.mu.Unlock()

	t.stage.Store("")
	if t.bar != nil {
		t.bar.SetCurrent(int64(len(t.stages)))
	}
}

// Fail drops the bar and remembers err.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()

	if t.bar != nil {
		t.bar.Abort(true)
	}
}

func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Timings lists finished stages with their durations, e.g.
// "geocode 120ms, ephemeris 1ms".
func (t *Tracker) Timings() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	parts := make([]string, 0, len(t.timings))
	for i, d := range t.timings {
		parts = append(parts, fmt.Sprintf("%s %s", t.stages[i], d.Round(time.Millisecond)))
	}
	return strings.Join(parts, ", ")
}
