package graph

// Range is a half-open interval of node ids [Start, End)
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of nodes in the range
func (r Range) Len() uint64 {
	return r.End - r.Start
}

// Partition splits [0, nodeCount) into at most parts contiguous ranges of similar size.
// Empty ranges are never returned.
func Partition(nodeCount uint64, parts int) []Range {
	if parts <= 0 {
		parts = 1
	}
	if nodeCount == 0 {
		return nil
	}
	if uint64(parts) > nodeCount {
		parts = int(nodeCount)
	}

	ranges := make([]Range, 0, parts)
	size := nodeCount / uint64(parts)
	rest := nodeCount % uint64(parts)
	start := uint64(0)
	for i := 0; i < parts; i++ {
		end := start + size
		if uint64(i) < rest {
			end++
		}
		ranges = append(ranges, Range{Start: start, End: end})
		start = end
	}
	return ranges
}
