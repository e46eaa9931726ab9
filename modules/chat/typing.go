package chat

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d elapses.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// ClockScheduler schedules callbacks on the runtime timer.
type ClockScheduler struct{}

// AfterFunc implements Scheduler with time.AfterFunc.
func (ClockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// TypingState is the typing status of one connection.
type TypingState struct {
	ConnID string
	Name   string
	RoomID string

	seq   uint64
	timer Timer
}

// TypingTracker keeps at most one TypingState per connection and expires
// each one after a fixed duration since its most recent Start.
// It is not safe for concurrent use; the Engine serializes access.
type TypingTracker struct {
	states    map[string]*TypingState
	scheduler Scheduler
	timeout   time.Duration
	seq       uint64
	onExpire  func(connID string, seq uint64)
}

// NewTypingTracker creates a tracker. onExpire is invoked from the scheduler
// when a state's timer fires and must route back through Expire.
func NewTypingTracker(scheduler Scheduler, timeout time.Duration, onExpire func(connID string, seq uint64)) *TypingTracker {
	if scheduler == nil {
		scheduler = ClockScheduler{}
	}
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingTracker{
		states:    make(map[string]*TypingState),
		scheduler: scheduler,
		timeout:   timeout,
		onExpire:  onExpire,
	}
}

// Start marks connID as typing and restarts its expiry countdown.
// It returns the previous state and whether the connection was already typing.
func (t *TypingTracker) Start(connID, name, roomID string) (TypingState, bool) {
	prev, wasTyping := t.states[connID]
	if wasTyping {
		prev.timer.Stop()
	}

	t.seq++
	seq := t.seq
	timer := t.scheduler.AfterFunc(t.timeout, func() {
		if t.onExpire != nil {
			t.onExpire(connID, seq)
		}
	})

	t.states[connID] = &TypingState{
		ConnID: connID,
		Name:   name,
		RoomID: roomID,
		seq:    seq,
		timer:  timer,
	}

	if !wasTyping {
		return TypingState{}, false
	}
	return *prev, true
}

// Stop clears the typing state of connID and cancels its timer.
// It returns false when the connection was not typing.
func (t *TypingTracker) Stop(connID string) (TypingState, bool) {
	state, ok := t.states[connID]
	if !ok {
		return TypingState{}, false
	}
	state.timer.Stop()
	delete(t.states, connID)
	return *state, true
}

// Expire clears the typing state of connID if seq still identifies its current timer.
// A timer that fired after being replaced or stopped is ignored.
func (t *TypingTracker) Expire(connID string, seq uint64) (TypingState, bool) {
	state, ok := t.states[connID]
	if !ok || state.seq != seq {
		return TypingState{}, false
	}
	delete(t.states, connID)
	return *state, true
}

// Get returns the typing state of connID.
func (t *TypingTracker) Get(connID string) (TypingState, bool) {
	state, ok := t.states[connID]
	if !ok {
		return TypingState{}, false
	}
	return *state, true
}

// Len returns the number of connections currently typing.
func (t *TypingTracker) Len() int {
	return len(t.states)
}
