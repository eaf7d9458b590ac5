package store

import (
	"context"
	"sync"
)

// Memory keeps records in process memory. Records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]UserRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[int64]UserRecord)}
}

func (m *Memory) Get(_ context.Context, userID int64) (UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	rec.Summary = copySummary(rec.Summary)
	return rec, nil
}

func (m *Memory) Put(_ context.Context, rec UserRecord) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec = stamp(rec, m.records[rec.UserID].Version+1)
	rec.Summary = copySummary(rec.Summary)
	m.records[rec.UserID] = rec
	return rec, nil
}

func (m *Memory) CompareAndSwap(_ context.Context, prev, next UserRecord) (UserRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.records[next.UserID]
	if cur.Version != prev.Version {
		return cur, false, nil
	}
	next = stamp(next, cur.Version+1)
	next.Summary = copySummary(next.Summary)
	m.records[next.UserID] = next
	return next, true, nil
}

func (m *Memory) Close() error { return nil }
