package chunk

import "fmt"

// Allocator hands out contiguous byte spans inside chunks, rolling to a
// fresh chunk when the current one cannot satisfy a request.
type Allocator interface {
	// Alloc reserves n bytes and returns the span covering them. The
	// caller copies line bytes into span.Bytes(). Panics if n can never
	// fit in a single chunk: allocation failure is fatal.
	Alloc(n int) Span

	// Current returns the chunk the next Alloc would try first.
	Current() *Chunk

	// Chunks returns every chunk handed out so far, in creation order.
	Chunks() []*Chunk

	// Finalize seals all chunks: suffix arrays and file trees are built,
	// and no further Alloc calls are permitted. Finalizing twice is an
	// error.
	Finalize() error

	// Cleanup releases chunk backing storage.
	Cleanup() error
}

// memAllocator backs chunks with ordinary heap slices.
type memAllocator struct {
	chunkSize int
	chunks    []*Chunk
	finalized bool
}

// NewMemAllocator returns an in-memory Allocator with the given chunk
// capacity. Size 0 uses DefaultSize.
func NewMemAllocator(chunkSize int) Allocator {
	if chunkSize <= 0 {
		chunkSize = DefaultSize
	}
	return &memAllocator{chunkSize: chunkSize}
}

func (a *memAllocator) Alloc(n int) Span {
	if n > a.chunkSize {
		panic(fmt.Sprintf("chunk: allocation of %d bytes exceeds chunk size %d", n, a.chunkSize))
	}
	if a.finalized {
		panic("chunk: alloc after finalize")
	}
	cur := a.Current()
	if cur == nil || cur.Size+n > len(cur.Data) {
		cur = &Chunk{Data: make([]byte, a.chunkSize)}
		a.chunks = append(a.chunks, cur)
	}
	off := uint32(cur.Size)
	cur.Size += n
	return Span{Chunk: cur, Off: off, Len: uint32(n)}
}

func (a *memAllocator) Current() *Chunk {
	if len(a.chunks) == 0 {
		return nil
	}
	return a.chunks[len(a.chunks)-1]
}

func (a *memAllocator) Chunks() []*Chunk {
	return a.chunks
}

func (a *memAllocator) Finalize() error {
	if a.finalized {
		return ErrFinalized
	}
	a.finalized = true
	for _, c := range a.chunks {
		c.Finalize()
	}
	return nil
}

func (a *memAllocator) Cleanup() error {
	a.chunks = nil
	return nil
}
