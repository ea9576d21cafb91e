package game

import (
	"sync"
	"time"
)

const DefaultRetention = 5 * time.Minute

// ProcessedAction is a room message that already went through to a room.
type ProcessedAction struct {
	RequestID string
	SessionID string
	RoomID    string
	Type      string
	Timestamp time.Time
}

// ActionTracker drops client messages whose requestId was already forwarded. Clients retry
// sends over flaky connections and the rooms must not see the same bet twice.
type ActionTracker struct {
	mu               sync.Mutex
	processedActions map[string]ProcessedAction
	retention        time.Duration
	stopCleanup      chan struct{}
	stopOnce         sync.Once
}

func NewActionTracker(retention time.Duration) *ActionTracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	at := &ActionTracker{
		processedActions: make(map[string]ProcessedAction),
		retention:        retention,
		stopCleanup:      make(chan struct{}),
	}
	go at.cleanupLoop()
	return at
}

// Track records the action and reports whether it is new. Messages without a requestId are
// always new.
func (at *ActionTracker) Track(requestID, sessionID, roomID, msgType string) bool {
	if requestID == "" {
		return true
	}

	at.mu.Lock()
	defer at.mu.Unlock()

	// ids are global so one session cannot replay another's request
	if _, exists := at.processedActions[requestID]; exists {
		return false
	}
	at.processedActions[requestID] = ProcessedAction{
		RequestID: requestID,
		SessionID: sessionID,
		RoomID:    roomID,
		Type:      msgType,
		Timestamp: time.Now(),
	}
	return true
}

func (at *ActionTracker) GetProcessedCount() int {
	at.mu.Lock()
	defer at.mu.Unlock()
	return len(at.processedActions)
}

// Cleanup removes entries older than retentionPeriod and returns how many went.
func (at *ActionTracker) Cleanup(retentionPeriod time.Duration) int {
	at.mu.Lock()
	defer at.mu.Unlock()

	cutoff := time.Now().Add(-retentionPeriod)
	removed := 0
	for id, action := range at.processedActions {
		if action.Timestamp.Before(cutoff) {
			delete(at.processedActions, id)
			removed++
		}
	}
	return removed
}

func (at *ActionTracker) cleanupLoop() {
	ticker := time.NewTicker(at.retention)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			at.Cleanup(at.retention)
		case <-at.stopCleanup:
			return
		}
	}
}

func (at *ActionTracker) Stop() {
	at.stopOnce.Do(func() { close(at.stopCleanup) })
}
