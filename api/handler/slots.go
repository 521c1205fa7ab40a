package handler

// Slots caps the number of captures running at once. Each capture owns a
// browser process, so the cap bounds memory rather than throughput.
type Slots struct {
	ch chan struct{}
}

// NewSlots creates a Slots with room for max captures. max < 1 is treated as 1.
func NewSlots(max int) *Slots {
	if max < 1 {
		max = 1
	}
	return &Slots{ch: make(chan struct{}, max)}
}

// TryAcquire takes a slot without waiting. It reports false when all
// slots are in use.
func (s *Slots) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a slot taken by TryAcquire.
func (s *Slots) Release() { <-s.ch }

// Active is the number of slots in use.
func (s *Slots) Active() int { return len(s.ch) }

// Max is the slot capacity.
func (s *Slots) Max() int { return cap(s.ch) }
