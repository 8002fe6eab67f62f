package game

import "sync"

// Session is the process-wide round state machine. It is owned by whoever
// constructs it (main, or a test) and passed by handle to the service and
// the background loops; it holds no store state and does not survive a
// restart, which is intentional for an event game.
type Session struct {
	mu      sync.Mutex
	active  bool
	round   int
	winners []Winner
}

func NewSession() *Session {
	return &Session{}
}

// IsActive may be read without coordinating with control operations; a
// stale read for one tick is acceptable because every purchase and loop
// tick re-checks.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Start activates a new round: increments the round counter and clears
// winners from the previous one.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrRoundActive
	}
	s.active = true
	s.round++
	s.winners = nil
	return nil
}

// Stop deactivates the round and records its winners.
func (s *Session) Stop(winners []Winner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrRoundNotActive
	}
	s.active = false
	s.winners = winners
	return nil
}

func (s *Session) ClearWinners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winners = nil
}

func (s *Session) Snapshot(observers int) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	winners := make([]Winner, len(s.winners))
	copy(winners, s.winners)
	return SessionSnapshot{
		IsActive:           s.active,
		RoundNumber:        s.round,
		Winners:            winners,
		ConnectedObservers: observers,
	}
}
