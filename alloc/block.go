package alloc

import "strconv"

// A Block is a contiguous extent of the managed address space. A block has no
// identity beyond its position in the owning sequence; block 0 starts at
// offset 0 and block i starts immediately after block i-1 ends.
type Block struct {
	Size      int
	Allocated bool
}

func (b Block) String() string {
	status := "free"
	if b.Allocated {
		status = "allocated"
	}

	return "Block(size=" + strconv.Itoa(b.Size) + ", " + status + ")"
}
