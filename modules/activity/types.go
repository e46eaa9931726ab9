package activity

import (
	"sync"
	"time"
)

// ServiceGetStats is the request/reply service served by the activity module.
const ServiceGetStats = "get-activity-stats"

// Summary is a point-in-time view of chat activity.
type Summary struct {
	Online          int       `json:"online"`
	PeakOnline      int       `json:"peak_online"`
	Joins           int       `json:"joins"`
	Leaves          int       `json:"leaves"`
	PublicMessages  int       `json:"public_messages"`
	PrivateMessages int       `json:"private_messages"`
	MessageBytes    int       `json:"message_bytes"`
	PrivateChats    int       `json:"private_chats_started"`
	PrivateRooms    int       `json:"private_rooms_created"`
	LastActivity    time.Time `json:"last_activity,omitempty"`
}

// Store accumulates activity counters. It never holds message text.
type Store struct {
	mu      sync.RWMutex
	summary Summary
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// RecordJoin records an announced user and the online count after it.
func (s *Store) RecordJoin(online int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summary.Joins++
	s.setOnline(online)
	s.touch(at)
}

// RecordLeave records a departed user and the online count after it.
func (s *Store) RecordLeave(online int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summary.Leaves++
	s.setOnline(online)
	s.touch(at)
}

// RecordMessage records one relayed message of length bytes.
func (s *Store) RecordMessage(private bool, length int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if private {
		s.summary.PrivateMessages++
	} else {
		s.summary.PublicMessages++
	}
	s.summary.MessageBytes += length
	s.touch(at)
}

// RecordPrivateChat records a start-private-chat; created marks a new room.
func (s *Store) RecordPrivateChat(created bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summary.PrivateChats++
	if created {
		s.summary.PrivateRooms++
	}
	s.touch(at)
}

// Summary returns a copy of the counters.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

func (s *Store) setOnline(online int) {
	s.summary.Online = online
	if online > s.summary.PeakOnline {
		s.summary.PeakOnline = online
	}
}

func (s *Store) touch(at time.Time) {
	if at.After(s.summary.LastActivity) {
		s.summary.LastActivity = at
	}
}
