package alloc

import "strconv"

// NoFitError is returned by Allocate when no free block is large enough to
// serve the requested size. The manager state is left unchanged.
type NoFitError struct {
	Size int
}

func (e *NoFitError) Error() string {
	return "no suitable block found for allocation of size " +
		strconv.Itoa(e.Size)
}

// NoMatchingBlockError is returned by Deallocate when no allocated block of
// exactly the requested size exists. The manager state is left unchanged.
type NoMatchingBlockError struct {
	Size int
}

func (e *NoMatchingBlockError) Error() string {
	return "no allocated block of size " + strconv.Itoa(e.Size) +
		" found to deallocate"
}
