package alloc

// Stats summarizes the fragmentation state of a manager. All fields are
// derived from the block sequence; a Stats value is a point-in-time reading.
type Stats struct {
	Capacity       int     `json:"capacity"`
	FreeCapacity   int     `json:"free_capacity"`
	BlockCount     int     `json:"block_count"`
	FreeBlockCount int     `json:"free_block_count"`
	LargestFree    int     `json:"largest_free"`
	Fragmentation  float64 `json:"fragmentation"`
}

func (m *managerImpl) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Capacity:   m.capacity,
		BlockCount: len(m.blocks),
	}

	for _, b := range m.blocks {
		if b.Allocated {
			continue
		}

		s.FreeBlockCount++
		s.FreeCapacity += b.Size
		if b.Size > s.LargestFree {
			s.LargestFree = b.Size
		}
	}

	// External fragmentation: the share of free memory that is not in the
	// largest free block. Zero when all memory is allocated.
	if s.FreeCapacity > 0 {
		s.Fragmentation =
			1.0 - float64(s.LargestFree)/float64(s.FreeCapacity)
	}

	return s
}
