package voice

import "context"

// Floor is a half-duplex token for the local audio path. The gate holds it
// while speaking and the recorder holds it while recording, so the two can
// never overlap.
type Floor struct {
	ch chan struct{}
}

// NewFloor returns a free floor.
func NewFloor() *Floor {
	return &Floor{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the floor is free or ctx is done.
func (f *Floor) Acquire(ctx context.Context) error {
	select {
	case f.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the floor. Releasing a free floor is a no-op.
func (f *Floor) Release() {
	select {
	case <-f.ch:
	default:
	}
}

// Busy reports whether someone holds the floor.
func (f *Floor) Busy() bool {
	return len(f.ch) == 1
}
