package alloc

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bestfitsim/hooking"
)

type opLogHook struct {
	positions []*hooking.HookPos
	infos     []OpInfo
}

func (h *opLogHook) Func(ctx hooking.HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
	h.infos = append(h.infos, ctx.Item.(OpInfo))
}

func mustAllocate(m Manager, size int) int {
	index, err := m.Allocate(size)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return index
}

func mustDeallocate(m Manager, size int) int {
	index, err := m.Deallocate(size)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return index
}

func totalSize(blocks []Block) int {
	total := 0
	for _, b := range blocks {
		total += b.Size
	}
	return total
}

var _ = Describe("Manager", func() {
	var m Manager

	BeforeEach(func() {
		m = NewManager("Memory", 1000)
	})

	It("should start as a single free block of the total capacity", func() {
		Expect(m.Snapshot()).To(Equal([]Block{{Size: 1000}}))
		Expect(m.Capacity()).To(Equal(1000))
		Expect(m.FreeCapacity()).To(Equal(1000))
	})

	It("should panic on non-positive capacity", func() {
		Expect(func() { NewManager("Memory", 0) }).To(Panic())
		Expect(func() { NewManager("Memory", -5) }).To(Panic())
	})

	It("should panic on invalid names", func() {
		Expect(func() { NewManager("best_fit", 100) }).To(Panic())
	})

	It("should split the block on partial allocation", func() {
		index := mustAllocate(m, 300)

		Expect(index).To(Equal(0))
		Expect(m.Snapshot()).To(Equal([]Block{
			{Size: 300, Allocated: true},
			{Size: 700},
		}))
	})

	It("should allocate an exact fit in place without splitting", func() {
		mustAllocate(m, 300)
		mustAllocate(m, 700)

		snapshot := m.Snapshot()
		Expect(snapshot).To(HaveLen(2))
		Expect(snapshot[1]).To(Equal(Block{Size: 700, Allocated: true}))
		Expect(m.FreeCapacity()).To(Equal(0))
	})

	It("should pick the tightest fit among all free blocks", func() {
		m = NewManager("Memory", 1100)

		// Free blocks of 300, 150, and 500, separated by 10-unit
		// allocated blocks, with an allocated tail.
		mustAllocate(m, 300)
		mustAllocate(m, 10)
		mustAllocate(m, 150)
		mustAllocate(m, 10)
		mustAllocate(m, 500)
		mustAllocate(m, 10)
		mustAllocate(m, 120)
		mustDeallocate(m, 300)
		mustDeallocate(m, 150)
		mustDeallocate(m, 500)

		index := mustAllocate(m, 140)

		// The 150 block has the minimum left-over (10), so it wins over
		// both 300 and 500.
		Expect(index).To(Equal(2))
		Expect(m.Snapshot()).To(Equal([]Block{
			{Size: 300},
			{Size: 10, Allocated: true},
			{Size: 140, Allocated: true},
			{Size: 10},
			{Size: 10, Allocated: true},
			{Size: 500},
			{Size: 10, Allocated: true},
			{Size: 120, Allocated: true},
		}))
	})

	It("should break ties toward the lowest address", func() {
		m = NewManager("Memory", 610)

		mustAllocate(m, 200)
		mustAllocate(m, 10)
		mustAllocate(m, 200)
		mustAllocate(m, 200)
		mustDeallocate(m, 200)
		mustDeallocate(m, 200)

		// Two free blocks of 200; the first one must be split.
		index := mustAllocate(m, 100)

		Expect(index).To(Equal(0))
		Expect(m.Snapshot()).To(Equal([]Block{
			{Size: 100, Allocated: true},
			{Size: 100},
			{Size: 10, Allocated: true},
			{Size: 200},
			{Size: 200, Allocated: true},
		}))
	})

	It("should fail without mutating state when nothing fits", func() {
		mustAllocate(m, 400)
		before := m.Snapshot()

		index, err := m.Allocate(700)

		Expect(err).To(BeAssignableToTypeOf(&NoFitError{}))
		Expect(err.(*NoFitError).Size).To(Equal(700))
		Expect(index).To(Equal(0))
		Expect(m.Snapshot()).To(Equal(before))
	})

	It("should fail when the request exceeds the total capacity", func() {
		_, err := m.Allocate(1001)

		Expect(err).To(HaveOccurred())
		Expect(m.Snapshot()).To(Equal([]Block{{Size: 1000}}))
	})

	It("should panic on a non-positive allocation size", func() {
		Expect(func() { m.Allocate(0) }).To(Panic())
		Expect(func() { m.Deallocate(-1) }).To(Panic())
	})

	It("should free the first allocated block of the requested size", func() {
		m = NewManager("Memory", 610)

		mustAllocate(m, 200)
		mustAllocate(m, 10)
		mustAllocate(m, 200)
		mustAllocate(m, 200)

		index := mustDeallocate(m, 200)

		Expect(index).To(Equal(0))
		Expect(m.Snapshot()).To(Equal([]Block{
			{Size: 200},
			{Size: 10, Allocated: true},
			{Size: 200, Allocated: true},
			{Size: 200, Allocated: true},
		}))
	})

	It("should not free a block when only a free block matches the size",
		func() {
			mustAllocate(m, 400)
			before := m.Snapshot()

			// A free block of 600 exists, but no allocated one.
			index, err := m.Deallocate(600)

			Expect(err).To(BeAssignableToTypeOf(&NoMatchingBlockError{}))
			Expect(err.(*NoMatchingBlockError).Size).To(Equal(600))
			Expect(index).To(Equal(0))
			Expect(m.Snapshot()).To(Equal(before))
		})

	It("should merge a freed block with its free right neighbor", func() {
		mustAllocate(m, 300)

		mustDeallocate(m, 300)

		Expect(m.Snapshot()).To(Equal([]Block{{Size: 1000}}))
	})

	It("should progressively coalesce a chain of freed blocks", func() {
		m = NewManager("Memory", 300)

		mustAllocate(m, 100)
		mustAllocate(m, 100)
		mustAllocate(m, 100)

		mustDeallocate(m, 100)
		Expect(m.Snapshot()).To(Equal([]Block{
			{Size: 100},
			{Size: 100, Allocated: true},
			{Size: 100, Allocated: true},
		}))

		mustDeallocate(m, 100)
		Expect(m.Snapshot()).To(Equal([]Block{
			{Size: 200},
			{Size: 100, Allocated: true},
		}))

		mustDeallocate(m, 100)
		Expect(m.Snapshot()).To(Equal([]Block{{Size: 300}}))
	})

	It("should report the pre-merge index on deallocation", func() {
		m = NewManager("Memory", 300)

		mustAllocate(m, 100)
		mustAllocate(m, 100)
		mustAllocate(m, 100)
		mustDeallocate(m, 100)

		// Block 1 is freed first, then absorbed into block 0.
		index := mustDeallocate(m, 100)

		Expect(index).To(Equal(1))
		Expect(m.Snapshot()).To(Equal([]Block{
			{Size: 200},
			{Size: 100, Allocated: true},
		}))
	})

	It("should conserve capacity across any operation sequence", func() {
		sizes := []int{137, 12, 500, 12, 64, 300}

		for _, s := range sizes {
			m.Allocate(s)
			Expect(totalSize(m.Snapshot())).To(Equal(1000))
		}

		for _, s := range []int{12, 500, 999, 137, 12, 64} {
			m.Deallocate(s)
			Expect(totalSize(m.Snapshot())).To(Equal(1000))
		}
	})

	It("should never leave two adjacent free blocks", func() {
		sizes := []int{100, 200, 50, 300, 350}
		for _, s := range sizes {
			mustAllocate(m, s)
		}

		for _, s := range []int{200, 300, 100, 350, 50} {
			mustDeallocate(m, s)

			snapshot := m.Snapshot()
			for i := 0; i < len(snapshot)-1; i++ {
				bothFree := !snapshot[i].Allocated &&
					!snapshot[i+1].Allocated
				Expect(bothFree).To(BeFalse())
			}
		}

		Expect(m.Snapshot()).To(Equal([]Block{{Size: 1000}}))
	})

	It("should return an isolated copy from Snapshot", func() {
		mustAllocate(m, 300)

		snapshot := m.Snapshot()
		snapshot[0].Size = 1

		Expect(m.Snapshot()[0].Size).To(Equal(300))
	})

	Context("with a hook attached", func() {
		var hook *opLogHook

		BeforeEach(func() {
			hook = &opLogHook{}
			m.AcceptHook(hook)
		})

		It("should report allocations", func() {
			mustAllocate(m, 300)

			Expect(hook.positions).To(Equal([]*hooking.HookPos{HookPosAlloc}))
			Expect(hook.infos).To(Equal([]OpInfo{{Size: 300, Index: 0}}))
		})

		It("should report deallocations and merges", func() {
			mustAllocate(m, 300)
			hook.positions = nil
			hook.infos = nil

			mustDeallocate(m, 300)

			Expect(hook.positions).To(Equal([]*hooking.HookPos{
				HookPosDealloc,
				HookPosMerge,
			}))
			Expect(hook.infos).To(Equal([]OpInfo{
				{Size: 300, Index: 0},
				{Size: 1000, Index: 0},
			}))
		})

		It("should not report failed operations", func() {
			_, err := m.Allocate(2000)

			Expect(err).To(HaveOccurred())
			Expect(hook.positions).To(BeEmpty())
		})
	})

	Describe("Stats", func() {
		It("should summarize an untouched manager", func() {
			s := m.Stats()

			Expect(s).To(Equal(Stats{
				Capacity:       1000,
				FreeCapacity:   1000,
				BlockCount:     1,
				FreeBlockCount: 1,
				LargestFree:    1000,
			}))
		})

		It("should measure external fragmentation", func() {
			m = NewManager("Memory", 610)

			mustAllocate(m, 200)
			mustAllocate(m, 10)
			mustAllocate(m, 200)
			mustAllocate(m, 200)
			mustDeallocate(m, 200)
			mustDeallocate(m, 200)

			s := m.Stats()

			Expect(s.BlockCount).To(Equal(4))
			Expect(s.FreeBlockCount).To(Equal(2))
			Expect(s.FreeCapacity).To(Equal(400))
			Expect(s.LargestFree).To(Equal(200))
			Expect(s.Fragmentation).To(BeNumerically("~", 0.5, 1e-9))
		})

		It("should report zero fragmentation when full", func() {
			mustAllocate(m, 1000)

			Expect(m.Stats().Fragmentation).To(BeZero())
		})
	})
})
