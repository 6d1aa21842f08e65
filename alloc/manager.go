// Package alloc implements a best-fit dynamic memory allocator over a
// fixed-size address space. The allocator is a teaching model: it tracks
// block sizes and allocation flags, not real memory.
package alloc

import (
	"sync"

	"github.com/sarchlab/bestfitsim/hooking"
	"github.com/sarchlab/bestfitsim/naming"
)

// HookPosAlloc marks when a block is allocated.
var HookPosAlloc = &hooking.HookPos{Name: "Alloc"}

// HookPosDealloc marks when a block is deallocated.
var HookPosDealloc = &hooking.HookPos{Name: "Dealloc"}

// HookPosMerge marks when a free block absorbs its free right neighbor.
var HookPosMerge = &hooking.HookPos{Name: "Merge"}

// OpInfo describes a completed operation. It is delivered to hooks as the
// item of the hook context.
type OpInfo struct {
	// Size is the requested size for alloc/dealloc, or the size of the
	// merged block for merge.
	Size int

	// Index is the position of the affected block at the time the hook
	// fires. Positions shift on later splits and merges.
	Index int
}

// A Manager owns an ordered sequence of contiguous, non-overlapping blocks
// that covers a fixed address space, and serves best-fit allocation requests
// over it.
//
// Block indices returned by Allocate and Deallocate are positions in the
// sequence and are invalidated by the next mutating call. Callers that need
// to track blocks across operations must re-derive positions from Snapshot.
type Manager interface {
	naming.Named
	hooking.Hookable

	// Allocate marks the tightest-fitting free block as allocated,
	// splitting it when it is larger than the requested size. It returns
	// the index of the allocated block, or a *NoFitError when no free
	// block can serve the request.
	Allocate(size int) (int, error)

	// Deallocate frees the first allocated block of exactly the given
	// size and coalesces adjacent free blocks. It returns the index the
	// freed block had before coalescing, or a *NoMatchingBlockError when
	// no allocated block of that size exists.
	Deallocate(size int) (int, error)

	// Snapshot returns a copy of the current block sequence.
	Snapshot() []Block

	// Capacity returns the fixed total capacity.
	Capacity() int

	// FreeCapacity returns the sum of the sizes of all free blocks.
	FreeCapacity() int

	// Stats summarizes the current fragmentation state.
	Stats() Stats
}

// NewManager creates a Manager over the given capacity. The address space
// starts as a single free block.
func NewManager(name string, capacity int) Manager {
	naming.NameMustBeValid(name)

	if capacity <= 0 {
		panic("manager capacity must be positive")
	}

	return &managerImpl{
		name:     name,
		capacity: capacity,
		blocks:   []Block{{Size: capacity}},
	}
}

type managerImpl struct {
	hooking.HookableBase

	mu       sync.Mutex
	name     string
	capacity int
	blocks   []Block
}

// Name returns the name of the manager.
func (m *managerImpl) Name() string {
	return m.name
}

func (m *managerImpl) Capacity() int {
	return m.capacity
}

func (m *managerImpl) Allocate(size int) (int, error) {
	if size <= 0 {
		panic("allocation size must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bestFit := m.findBestFit(size)
	if bestFit < 0 {
		return 0, &NoFitError{Size: size}
	}

	if m.blocks[bestFit].Size > size {
		m.splitBlock(bestFit, size)
	}

	m.blocks[bestFit].Allocated = true

	m.invokeHook(HookPosAlloc, OpInfo{Size: size, Index: bestFit})

	return bestFit, nil
}

// findBestFit returns the index of the free block that minimizes the
// left-over size, or -1 when no free block is large enough. Ties go to the
// lowest address: the comparison is strictly-less-than, so a later candidate
// with an equal left-over never replaces an earlier one.
func (m *managerImpl) findBestFit(size int) int {
	bestFit := -1
	minLeftOver := 0

	for i, b := range m.blocks {
		if b.Allocated || b.Size < size {
			continue
		}

		leftOver := b.Size - size
		if bestFit < 0 || leftOver < minLeftOver {
			bestFit = i
			minLeftOver = leftOver
		}
	}

	return bestFit
}

// splitBlock shrinks the block at index to size and inserts the free
// remainder immediately after it, preserving address order.
func (m *managerImpl) splitBlock(index, size int) {
	remainder := Block{Size: m.blocks[index].Size - size}

	m.blocks = append(m.blocks, Block{})
	copy(m.blocks[index+2:], m.blocks[index+1:])
	m.blocks[index+1] = remainder

	m.blocks[index].Size = size
}

func (m *managerImpl) Deallocate(size int) (int, error) {
	if size <= 0 {
		panic("deallocation size must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.blocks {
		if !m.blocks[i].Allocated || m.blocks[i].Size != size {
			continue
		}

		m.blocks[i].Allocated = false

		m.invokeHook(HookPosDealloc, OpInfo{Size: size, Index: i})
		m.mergeFreeBlocks()

		return i, nil
	}

	return 0, &NoMatchingBlockError{Size: size}
}

// mergeFreeBlocks collapses every run of adjacent free blocks in one
// left-to-right sweep. After a merge the same position is re-examined, so
// three or more consecutive free blocks collapse without a second pass.
func (m *managerImpl) mergeFreeBlocks() {
	i := 0
	for i < len(m.blocks)-1 {
		if m.blocks[i].Allocated || m.blocks[i+1].Allocated {
			i++
			continue
		}

		m.blocks[i].Size += m.blocks[i+1].Size
		m.blocks = append(m.blocks[:i+1], m.blocks[i+2:]...)

		m.invokeHook(HookPosMerge, OpInfo{Size: m.blocks[i].Size, Index: i})
	}
}

func (m *managerImpl) Snapshot() []Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocks := make([]Block, len(m.blocks))
	copy(blocks, m.blocks)

	return blocks
}

func (m *managerImpl) FreeCapacity() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	free := 0
	for _, b := range m.blocks {
		if !b.Allocated {
			free += b.Size
		}
	}

	return free
}

// invokeHook fires the hooks at the given position. Hooks run with the
// manager lock held and must not call back into the manager.
func (m *managerImpl) invokeHook(pos *hooking.HookPos, info OpInfo) {
	if m.NumHooks() == 0 {
		return
	}

	m.InvokeHook(hooking.HookCtx{
		Domain: m,
		Pos:    pos,
		Item:   info,
		Detail: nil,
	})
}
