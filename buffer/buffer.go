// SPDX-License-Identifier: EPL-2.0

// Package buffer provides the fixed-capacity PCM byte region that moves
// between the streaming worker and a backend voice.
//
// A Buffer carries two lock counters, one for readers and one for the single
// writer. They are a debug contract, not a mutex: taking a lock never blocks.
// A write lock while any read lock is held (or the reverse) fails an
// assertion in debug builds. Keeping the writer and the reader apart in time
// is the job of the ring-slot discipline in package stream.
package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/ik5/audstream/internal/contract"
)

// Buffer is a contiguous byte region with a fixed reserved capacity.
type Buffer struct {
	data []byte
	size int

	readLocks  atomic.Int32
	writeLocks atomic.Int32
}

// New allocates a zeroed buffer able to hold capacity bytes.
func New(capacity int) *Buffer {
	contract.Assert(capacity >= 0, "buffer.New: negative capacity")

	return &Buffer{data: make([]byte, capacity)}
}

// ReadLock registers a reader. Any number of readers may hold the buffer at
// once, but never while it is write locked.
func (b *Buffer) ReadLock() {
	if !contract.Enabled {
		return
	}

	contract.Assert(b.writeLocks.Load() == 0, "Buffer.ReadLock: buffer is write locked")
	b.readLocks.Add(1)
	if b.writeLocks.Load() != 0 {
		b.readLocks.Add(-1)
		contract.Assert(false, "Buffer.ReadLock: buffer is write locked")
	}
}

// ReadUnlock releases one reader.
func (b *Buffer) ReadUnlock() {
	if !contract.Enabled {
		return
	}

	contract.Assert(b.readLocks.Add(-1) >= 0, "Buffer.ReadUnlock: buffer not read locked")
}

// WriteLock registers the single writer.
func (b *Buffer) WriteLock() {
	if !contract.Enabled {
		return
	}

	contract.Assert(b.readLocks.Load() == 0, "Buffer.WriteLock: buffer is read locked")
	contract.Assert(b.writeLocks.CompareAndSwap(0, 1), "Buffer.WriteLock: buffer already write locked")
	if b.readLocks.Load() != 0 {
		b.writeLocks.Store(0)
		contract.Assert(false, "Buffer.WriteLock: buffer is read locked")
	}
}

// WriteUnlock releases the writer.
func (b *Buffer) WriteUnlock() {
	if !contract.Enabled {
		return
	}

	contract.Assert(b.writeLocks.CompareAndSwap(1, 0), "Buffer.WriteUnlock: buffer not write locked")
}

// ReadLocks returns the current number of read lock holders.
func (b *Buffer) ReadLocks() int32 { return b.readLocks.Load() }

// WriteLocks returns 1 while the buffer is write locked, 0 otherwise.
func (b *Buffer) WriteLocks() int32 { return b.writeLocks.Load() }

func (b *Buffer) assertWriter(op string) {
	contract.Assert(!contract.Enabled || b.writeLocks.Load() > 0, "Buffer."+op+": buffer not write locked")
}

func (b *Buffer) assertReader(op string) {
	contract.Assert(!contract.Enabled || b.readLocks.Load() > 0, "Buffer."+op+": buffer not read locked")
}

// Reserve appends n zeroed bytes to the filled region.
func (b *Buffer) Reserve(n int) error {
	b.assertWriter("Reserve")

	if n < 0 || b.size+n > len(b.data) {
		return fmt.Errorf("reserve %d bytes at %d/%d: %w", n, b.size, len(b.data), ErrCapacity)
	}

	clear(b.data[b.size : b.size+n])
	b.size += n

	return nil
}

// Add appends data to the filled region.
func (b *Buffer) Add(data []byte) error {
	b.assertWriter("Add")

	if b.size+len(data) > len(b.data) {
		return fmt.Errorf("add %d bytes at %d/%d: %w", len(data), b.size, len(b.data), ErrCapacity)
	}

	b.size += copy(b.data[b.size:], data)

	return nil
}

// Put overwrites the buffer at pos with data. Writing past the filled size
// extends it.
func (b *Buffer) Put(data []byte, pos int) error {
	b.assertWriter("Put")

	if pos < 0 || pos+len(data) > len(b.data) {
		return fmt.Errorf("put %d bytes at %d/%d: %w", len(data), pos, len(b.data), ErrCapacity)
	}

	copy(b.data[pos:], data)
	b.size = max(b.size, pos+len(data))

	return nil
}

// Get returns the filled bytes starting at pos. The slice is borrowed and
// only valid while the caller holds its read lock.
func (b *Buffer) Get(pos int) []byte {
	b.assertReader("Get")
	contract.Assert(pos >= 0 && pos < len(b.data), "Buffer.Get: position out of range")

	if pos >= b.size {
		return b.data[b.size:b.size]
	}

	return b.data[pos:b.size]
}

// Spare returns the unfilled tail of the buffer for a writer to read into.
// Follow it with Commit.
func (b *Buffer) Spare() []byte {
	b.assertWriter("Spare")

	return b.data[b.size:]
}

// Commit grows the filled size by n bytes previously written into Spare.
func (b *Buffer) Commit(n int) error {
	b.assertWriter("Commit")

	if n < 0 || b.size+n > len(b.data) {
		return fmt.Errorf("commit %d bytes at %d/%d: %w", n, b.size, len(b.data), ErrCapacity)
	}

	b.size += n

	return nil
}

// Clear zeroes the filled region and rewinds the filled size.
func (b *Buffer) Clear() {
	b.assertWriter("Clear")

	clear(b.data[:b.size])
	b.size = 0
}

// Reset rewinds the filled size without touching memory.
func (b *Buffer) Reset() {
	b.assertWriter("Reset")

	b.size = 0
}

// Len is the filled size in bytes.
func (b *Buffer) Len() int { return b.size }

// Cap is the reserved capacity in bytes.
func (b *Buffer) Cap() int { return len(b.data) }

// Release drops the backing memory. Both lock counts must be zero.
func (b *Buffer) Release() {
	contract.Assert(!contract.Enabled || b.readLocks.Load() == 0, "Buffer.Release: buffer still read locked")
	contract.Assert(!contract.Enabled || b.writeLocks.Load() == 0, "Buffer.Release: buffer still write locked")

	b.data = nil
	b.size = 0
}
