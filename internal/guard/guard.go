// Package guard keeps per-user request hygiene: only one chart in flight
// per user and a daily allowance of extended reports.
package guard

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keyed is a set of per-key locks. Keys are released back to the set when
// unlocked, so idle users cost nothing.
type Keyed struct {
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewKeyed() *Keyed {
	return &Keyed{active: make(map[int64]struct{})}
}

// TryLock takes the lock for key without blocking. The returned function
// releases it and is safe to call more than once.
func (k *Keyed) TryLock(key int64) (unlock func(), ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.active[key]; busy {
		return nil, false
	}
	k.active[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			k.mu.Lock()
			delete(k.active, key)
			k.mu.Unlock()
		})
	}, true
}

// Busy reports whether key is currently locked.
func (k *Keyed) Busy(key int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, busy := k.active[key]
	return busy
}

// Daily hands out perDay tokens per user, refilled evenly over 24 hours.
type Daily struct {
	mu        sync.Mutex
	perDay    int
	limiters  map[int64]*rate.Limiter
	lastSweep time.Time
	now       func() time.Time
}

// sweepEvery is how often Reserve drops limiters that have refilled.
const sweepEvery = time.Hour

func NewDaily(perDay int) *Daily {
	if perDay < 1 {
		perDay = 1
	}
	return &Daily{
		perDay:   perDay,
		limiters: make(map[int64]*rate.Limiter),
		now:      time.Now,
	}
}

func (d *Daily) limiter(userID int64) *rate.Limiter {
	l, ok := d.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(d.perDay)), d.perDay)
		d.limiters[userID] = l
	}
	return l
}

// sweep forgets users whose allowance is full again; a fresh limiter is
// identical to a full one. Callers hold d.mu.
func (d *Daily) sweep(now time.Time) {
	if now.Sub(d.lastSweep) < sweepEvery {
		return
	}
	d.lastSweep = now
	for id, l := range d.limiters {
		if l.TokensAt(now) >= float64(d.perDay) {
			delete(d.limiters, id)
		}
	}
}

// Ticket is a token taken from the daily allowance.
type Ticket struct {
	d  *Daily
	r  *rate.Reservation
	at time.Time
}

// Refund gives the token back, for reports that could not be delivered.
// The reservation is cancelled as of the moment it was taken; the limiter
// ignores cancellations dated after a reservation became usable.
func (t *Ticket) Refund() {
	if t == nil {
		return
	}
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	t.r.CancelAt(t.at)
}

// Reserve takes a token for userID. When none is left it reports how long
// until the next one and takes nothing.
func (d *Daily) Reserve(userID int64) (*Ticket, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	d.sweep(now)
	r := d.limiter(userID).ReserveN(now, 1)
	if !r.OK() {
		return nil, 24 * time.Hour
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return nil, delay
	}
	return &Ticket{d: d, r: r, at: now}, 0
}
