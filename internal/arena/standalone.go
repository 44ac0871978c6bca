package arena

// Standalone is a block-chained bump allocator with no owner affiliation,
// safe to build on one goroutine and hand off to another — the Go
// analogue of the original's malloc-backed standalone arena, used by
// internal/workerpool to build a serialized mailbox message on the
// sender's goroutine and have the receiver read it without any shared
// lock beyond the channel handoff itself.
type Standalone struct {
	blockSize  int
	head       *block
	cur        *block
	totalAlloc int
}

// NewStandalone creates a standalone arena with the given block size. A
// size of 0 uses DefaultBlockSize.
func NewStandalone(blockSize int) *Standalone {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	s := &Standalone{blockSize: blockSize}
	s.head = newBlock(blockSize)
	s.cur = s.head
	return s
}

// Alloc returns size bytes of zeroed, aligned memory from the arena.
func (s *Standalone) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	if buf, ok := s.cur.alloc(size); ok {
		s.totalAlloc += size
		return buf
	}
	need := size
	if need < s.blockSize {
		need = s.blockSize
	}
	nb := newBlock(need)
	s.cur.next = nb
	s.cur = nb
	buf, ok := s.cur.alloc(size)
	if !ok {
		return make([]byte, size)
	}
	s.totalAlloc += size
	return buf
}

// Reset rewinds every block's allocation pointer to its start.
func (s *Standalone) Reset() {
	for b := s.head; b != nil; b = b.next {
		b.off = 0
	}
	s.cur = s.head
	s.totalAlloc = 0
}

// Close releases the arena's blocks.
func (s *Standalone) Close() {
	s.head = nil
	s.cur = nil
}
