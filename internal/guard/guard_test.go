package guard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedTryLock(t *testing.T) {
	k := NewKeyed()

	unlock, ok := k.TryLock(1)
	require.True(t, ok)
	assert.True(t, k.Busy(1))

	_, ok = k.TryLock(1)
	assert.False(t, ok, "second lock on the same key must fail")

	other, ok := k.TryLock(2)
	require.True(t, ok)
	other()

	unlock()
	unlock()
	assert.False(t, k.Busy(1))

	again, ok := k.TryLock(1)
	require.True(t, ok)
	again()
}

func TestKeyedConcurrent(t *testing.T) {
	k := NewKeyed()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := k.TryLock(99); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestDailyAllowance(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := NewDaily(2)
	d.now = func() time.Time { return now }

	first, _ := d.Reserve(5)
	require.NotNil(t, first)
	second, _ := d.Reserve(5)
	require.NotNil(t, second)

	third, wait := d.Reserve(5)
	assert.Nil(t, third)
	assert.InDelta(t, (12 * time.Hour).Seconds(), wait.Seconds(), 1)

	// Other users have their own allowance.
	other, _ := d.Reserve(6)
	assert.NotNil(t, other)

	now = now.Add(12 * time.Hour)
	fourth, _ := d.Reserve(5)
	assert.NotNil(t, fourth)
}

func TestDailyRefund(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := NewDaily(1)
	d.now = func() time.Time { return now }

	ticket, _ := d.Reserve(1)
	require.NotNil(t, ticket)
	blocked, _ := d.Reserve(1)
	require.Nil(t, blocked)

	ticket.Refund()
	again, _ := d.Reserve(1)
	assert.NotNil(t, again)

	var none *Ticket
	none.Refund()
}

func TestDailyRefundLater(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := NewDaily(1)
	d.now = func() time.Time { return now }

	ticket, _ := d.Reserve(1)
	require.NotNil(t, ticket)

	// Report generation took a while before it failed.
	now = now.Add(3 * time.Minute)
	ticket.Refund()

	again, _ := d.Reserve(1)
	assert.NotNil(t, again)
}

func TestDailyForgetsRefilledUsers(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := NewDaily(1)
	d.now = func() time.Time { return now }

	for id := int64(1); id <= 3; id++ {
		ticket, _ := d.Reserve(id)
		require.NotNil(t, ticket)
	}
	assert.Len(t, d.limiters, 3)

	// Users 1-3 have refilled a day later; user 4 is new.
	now = now.Add(25 * time.Hour)
	ticket, _ := d.Reserve(4)
	require.NotNil(t, ticket)
	assert.Len(t, d.limiters, 1)

	// A forgotten user starts again with a full allowance.
	again, _ := d.Reserve(1)
	assert.NotNil(t, again)
}
