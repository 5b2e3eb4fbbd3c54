package denylist

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

// Memory is an in-process denylist. Expired entries are ignored on read and
// removed by a background sweep that runs until Close.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	done      chan struct{}
	closeOnce sync.Once
}

func NewMemory(sweepInterval time.Duration) *Memory {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	m := &Memory{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go m.sweepLoop(sweepInterval)
	return m
}

func (m *Memory) Add(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	m.entries[tokenID] = expiresAt
	m.mu.Unlock()
	return nil
}

func (m *Memory) Contains(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	expiresAt, ok := m.entries[tokenID]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		m.mu.Lock()
		delete(m.entries, tokenID)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

func (m *Memory) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	for tokenID, expiresAt := range m.entries {
		if now.After(expiresAt) {
			delete(m.entries, tokenID)
		}
	}
}
