// Package fanout broadcasts valuation results to live subscribers.
package fanout

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/brickfield/appraisal/pkg/logger"
	"github.com/brickfield/appraisal/pkg/metrics"
)

// Subscriber is an open channel to one connected client. Send failures mark
// the subscriber dead; the manager removes it and moves on.
type Subscriber interface {
	// ID identifies the connection for tracking and removal.
	ID() string

	// Send delivers one text message. An error means the subscriber is gone.
	Send(text string) error
}

// Manager maintains the live subscriber set. All mutations go through the
// mutex; broadcasts iterate over a snapshot so concurrent connect and
// disconnect never corrupt delivery to the rest.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	log         logger.Logger

	sentCount    atomic.Int64
	removedCount atomic.Int64
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		subscribers: make(map[string]Subscriber),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.log == nil {
		m.log = logger.Get().Named("fanout")
	}

	return m
}

// Add registers a subscriber and updates the live count.
func (m *Manager) Add(ctx context.Context, sub Subscriber) {
	m.mu.Lock()
	m.subscribers[sub.ID()] = sub
	count := len(m.subscribers)
	m.mu.Unlock()

	metrics.UpdateFanoutConnections(count)
	m.log.Info(ctx, "subscriber connected",
		logger.String("id", sub.ID()),
		logger.Int("active", count),
	)
}

// Remove drops a subscriber by id. Removing an unknown id is a no-op.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	_, present := m.subscribers[id]
	delete(m.subscribers, id)
	count := len(m.subscribers)
	m.mu.Unlock()

	if !present {
		return
	}

	m.removedCount.Add(1)
	metrics.UpdateFanoutConnections(count)
	m.log.Info(ctx, "subscriber disconnected",
		logger.String("id", id),
		logger.Int("active", count),
	)
}

// Count returns the number of live subscribers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// Broadcast delivers message to every live subscriber. A failed send
// removes that subscriber without blocking delivery to the rest.
func (m *Manager) Broadcast(ctx context.Context, message string) {
	m.mu.RLock()
	snapshot := make([]Subscriber, 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		snapshot = append(snapshot, sub)
	}
	m.mu.RUnlock()

	var dead []string
	for _, sub := range snapshot {
		if err := sub.Send(message); err != nil {
			metrics.RecordFanoutSendError()
			m.log.Warn(ctx, "subscriber send failed; removing",
				logger.String("id", sub.ID()),
				logger.Error(err),
			)
			dead = append(dead, sub.ID())
			continue
		}
		m.sentCount.Add(1)
	}

	for _, id := range dead {
		m.Remove(ctx, id)
	}

	metrics.RecordBroadcast()
}

// SendTo delivers message to a single subscriber. A failed send removes it.
func (m *Manager) SendTo(ctx context.Context, id, message string) bool {
	m.mu.RLock()
	sub, ok := m.subscribers[id]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	if err := sub.Send(message); err != nil {
		metrics.RecordFanoutSendError()
		m.log.Warn(ctx, "subscriber send failed; removing",
			logger.String("id", id),
			logger.Error(err),
		)
		m.Remove(ctx, id)
		return false
	}

	m.sentCount.Add(1)
	return true
}

// Stats reports simple connection counters. No historical log is kept.
func (m *Manager) Stats() map[string]any {
	return map[string]any{
		"active_connections": m.Count(),
		"messages_sent":      m.sentCount.Load(),
		"removed":            m.removedCount.Load(),
	}
}
