package game

import (
	"sync"
	"testing"
	"time"
)

func TestActionTracker_Track(t *testing.T) {
	tracker := NewActionTracker(time.Minute)
	defer tracker.Stop()

	if !tracker.Track("req-1", "session-1", "room-1", "bet") {
		t.Error("First send should be new")
	}
	if tracker.Track("req-1", "session-1", "room-1", "bet") {
		t.Error("Resend with same requestId should be a duplicate")
	}
	if !tracker.Track("req-2", "session-1", "room-1", "bet") {
		t.Error("Different requestId should be new")
	}
	if tracker.Track("req-1", "session-2", "room-1", "fold") {
		t.Error("Same requestId from another session should be a duplicate")
	}
	if tracker.GetProcessedCount() != 2 {
		t.Errorf("Expected 2 tracked actions, got %d", tracker.GetProcessedCount())
	}
}

func TestActionTracker_EmptyRequestID(t *testing.T) {
	tracker := NewActionTracker(time.Minute)
	defer tracker.Stop()

	for i := 0; i < 3; i++ {
		if !tracker.Track("", "session-1", "room-1", "hit") {
			t.Errorf("Send %d without requestId should always be new", i+1)
		}
	}
	if tracker.GetProcessedCount() != 0 {
		t.Errorf("Expected untracked sends, got %d entries", tracker.GetProcessedCount())
	}
}

func TestActionTracker_Cleanup(t *testing.T) {
	tracker := NewActionTracker(time.Minute)
	defer tracker.Stop()

	tracker.Track("old", "session-1", "room-1", "bet")
	time.Sleep(20 * time.Millisecond)
	tracker.Track("new", "session-1", "room-1", "bet")

	if removed := tracker.Cleanup(10 * time.Millisecond); removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if !tracker.Track("old", "session-1", "room-1", "bet") {
		t.Error("Expired requestId should be accepted again")
	}
	if tracker.Track("new", "session-1", "room-1", "bet") {
		t.Error("Fresh requestId should still be a duplicate")
	}
}

func TestActionTracker_Concurrent(t *testing.T) {
	tracker := NewActionTracker(time.Minute)
	defer tracker.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.Track("same", "session-1", "room-1", "raise") {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("Expected exactly 1 accepted send, got %d", accepted)
	}
}

func TestActionTracker_StopTwice(t *testing.T) {
	tracker := NewActionTracker(0)
	tracker.Stop()
	tracker.Stop()
}
