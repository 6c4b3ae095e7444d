package chunk

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mmapAllocator backs chunks with anonymous memory mappings. Keeping chunk
// arenas out of the Go heap spares the GC from scanning corpus bytes and
// lets Cleanup return the memory to the kernel immediately.
type mmapAllocator struct {
	chunkSize int
	chunks    []*Chunk
	finalized bool
}

// NewMmapAllocator returns an Allocator whose chunks live in anonymous
// mmap regions. Size 0 uses DefaultSize.
func NewMmapAllocator(chunkSize int) Allocator {
	if chunkSize <= 0 {
		chunkSize = DefaultSize
	}
	return &mmapAllocator{chunkSize: chunkSize}
}

func (a *mmapAllocator) Alloc(n int) Span {
	if n > a.chunkSize {
		panic(fmt.Sprintf("chunk: allocation of %d bytes exceeds chunk size %d", n, a.chunkSize))
	}
	if a.finalized {
		panic("chunk: alloc after finalize")
	}
	cur := a.Current()
	if cur == nil || cur.Size+n > len(cur.Data) {
		data, err := unix.Mmap(-1, 0, a.chunkSize,
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
		if err != nil {
			panic(fmt.Sprintf("chunk: mmap %d bytes: %v", a.chunkSize, err))
		}
		cur = &Chunk{Data: data}
		a.chunks = append(a.chunks, cur)
	}
	off := uint32(cur.Size)
	cur.Size += n
	return Span{Chunk: cur, Off: off, Len: uint32(n)}
}

func (a *mmapAllocator) Current() *Chunk {
	if len(a.chunks) == 0 {
		return nil
	}
	return a.chunks[len(a.chunks)-1]
}

func (a *mmapAllocator) Chunks() []*Chunk {
	return a.chunks
}

func (a *mmapAllocator) Finalize() error {
	if a.finalized {
		return ErrFinalized
	}
	a.finalized = true
	for _, c := range a.chunks {
		c.Finalize()
		unix.Madvise(c.Data, unix.MADV_RANDOM)
	}
	return nil
}

func (a *mmapAllocator) Cleanup() error {
	var first error
	for _, c := range a.chunks {
		// Finalize re-slices Data to the fill size; unmap wants the
		// original mapping, so grow the slice back to full capacity.
		if err := unix.Munmap(c.Data[:cap(c.Data)]); err != nil && first == nil {
			first = err
		}
	}
	a.chunks = nil
	return first
}
