package louvain

// Result is the outcome of a clustering run
type Result struct {
	// RunID identifies the run in logs and traces
	RunID string `json:"run_id"`
	// Communities maps every input node to its final community in [0, CommunityCount)
	Communities []uint64 `json:"communities"`
	// Modularities holds one score per executed level
	Modularities []float64 `json:"modularities"`
	// Dendrogram holds one input-node-sized assignment per executed level
	Dendrogram [][]uint64 `json:"dendrogram,omitempty"`
	// Iterations holds the local search rounds of each executed level
	Iterations []int `json:"iterations"`
	// Levels is the number of executed levels
	Levels int `json:"levels"`
	// CommunityCount is the number of distinct final communities
	CommunityCount uint64 `json:"community_count"`
}

// CommunityOf returns the final community of node
func (r *Result) CommunityOf(node uint64) uint64 {
	return r.Communities[node]
}

// FinalModularity returns the modularity of the last level, or 0 when no level ran
func (r *Result) FinalModularity() float64 {
	if len(r.Modularities) == 0 {
		return 0
	}
	return r.Modularities[len(r.Modularities)-1]
}

// Members groups the input nodes by final community, ascending within each group
func (r *Result) Members() [][]uint64 {
	members := make([][]uint64, r.CommunityCount)
	for node, c := range r.Communities {
		members[c] = append(members[c], uint64(node))
	}
	return members
}

// LevelCommunities returns the assignment of every input node after level
func (r *Result) LevelCommunities(level int) []uint64 {
	if level < 0 || level >= len(r.Dendrogram) {
		return nil
	}
	return r.Dendrogram[level]
}

// renumber maps community ids onto [0, count) in order of first appearance
func renumber(communities []uint64) ([]uint64, uint64) {
	out := make([]uint64, len(communities))
	n := uint64(len(communities))

	dense := true
	for _, c := range communities {
		if c >= n {
			dense = false
			break
		}
	}

	var count uint64
	if dense {
		const unset = ^uint64(0)
		ids := make([]uint64, n)
		for i := range ids {
			ids[i] = unset
		}
		for i, c := range communities {
			if ids[c] == unset {
				ids[c] = count
				count++
			}
			out[i] = ids[c]
		}
		return out, count
	}

	ids := make(map[uint64]uint64)
	for i, c := range communities {
		id, ok := ids[c]
		if !ok {
			id = count
			ids[c] = id
			count++
		}
		out[i] = id
	}
	return out, count
}

func identity(n uint64) []uint64 {
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = uint64(i)
	}
	return ids
}
