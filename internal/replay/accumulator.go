package replay

import "sync"

// NewMatchMarker is the leading byte of the first replay chunk of a match.
const NewMatchMarker byte = 0x35

// Accumulator collects raw replay bytes pushed by the game loop.
//
// A push whose first byte is NewMatchMarker replaces the current buffer with
// a fresh one before appending. Snapshots handed out earlier keep pointing at
// the old buffer and never observe later writes.
type Accumulator struct {
	mu  sync.Mutex
	buf []byte
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Push appends data to the current buffer. Empty input is ignored.
func (a *Accumulator) Push(data []byte) {
	if len(data) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if data[0] == NewMatchMarker {
		a.buf = make([]byte, 0, len(data))
	}
	a.buf = append(a.buf, data...)
}

// Snapshot returns a frozen view of everything accumulated since the last reset.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	// Capping capacity at length forces any later append to leave the
	// visible prefix untouched.
	n := len(a.buf)
	return Snapshot{data: a.buf[:n:n]}
}

// Len reports the size of the current buffer.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

// Snapshot is a read-only view of accumulated replay bytes. It shares memory
// with the accumulator; callers must not modify the returned bytes.
type Snapshot struct {
	data []byte
}

// SnapshotOf wraps bytes the caller will no longer modify.
func SnapshotOf(data []byte) Snapshot {
	return Snapshot{data: data[:len(data):len(data)]}
}

// Bytes returns the snapshot contents.
func (s Snapshot) Bytes() []byte { return s.data }

// Len returns the number of bytes in the snapshot.
func (s Snapshot) Len() int { return len(s.data) }
