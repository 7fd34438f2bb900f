package modularity

import (
	"math/rand/v2"

	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/dd0wney/cluso-louvain/pkg/memtrack"
)

// task is one speculative sweep. It owns its assignment and community totals
// and only reads the optimizer's shared per-node arrays.
type task struct {
	index int
	o     *Optimizer
	graph graph.WeightedGraph
	rng   *rand.Rand

	communities []uint64
	sTot        []float64 // total degree per community
	sIn         []float64 // internal weight per community, both directions

	order    []uint64
	weightTo []float64 // scratch: weight from the current node to each community
	touched  []uint64  // scratch: neighbouring communities, first seen first
	seen     []bool

	improvement bool
	modularity  float64
}

func newTask(o *Optimizer, index int, rng *rand.Rand) *task {
	n := o.nodeCount
	t := &task{
		index:       index,
		o:           o,
		graph:       o.graph.ConcurrentCopy(),
		rng:         rng,
		communities: make([]uint64, n),
		sTot:        make([]float64, n),
		sIn:         make([]float64, n),
		order:       make([]uint64, n),
		weightTo:    make([]float64, n),
		seen:        make([]bool, n),
	}
	for i := range n {
		t.communities[i] = i
		t.order[i] = i
	}
	copy(t.sTot, o.degrees)
	copy(t.sIn, o.selfLoop)
	return t
}

func (t *task) sizeInBytes() int64 {
	n := t.o.nodeCount
	return 2*memtrack.Uint64s(n) + 3*memtrack.Float64s(n) + int64(n)
}

// run sweeps every node once and records the resulting modularity
func (t *task) run() error {
	t.improvement = false

	if t.o.opts.Concurrency > 1 {
		t.rng.Shuffle(len(t.order), func(i, j int) {
			t.order[i], t.order[j] = t.order[j], t.order[i]
		})
	}

	for _, node := range t.order {
		if t.o.terminated.Load() {
			return ErrCancelled
		}
		t.move(node)
	}

	t.modularity = t.computeModularity()
	return nil
}

// move takes node out of its community and inserts it into the one with the
// highest modularity gain. Staying in place scores 0; only a strictly greater
// gain moves the node and ties keep the community seen first.
func (t *task) move(node uint64) {
	o := t.o
	ki := o.degrees[node]
	aii := o.selfLoop[node]
	current := t.communities[node]

	t.graph.ForEachRelationship(node, func(_, target uint64, w float64) bool {
		if target == node {
			return true
		}
		c := t.communities[target]
		if !t.seen[c] {
			t.seen[c] = true
			t.touched = append(t.touched, c)
		}
		t.weightTo[c] += w
		return true
	})

	t.sTot[current] -= ki
	t.sIn[current] -= 2*t.weightTo[current] + aii

	best := current
	if o.opts.RandomNeighbor {
		if len(t.touched) > 0 {
			best = t.touched[t.rng.IntN(len(t.touched))]
		}
	} else {
		bestGain := 0.0
		for _, c := range t.touched {
			gain := t.weightTo[c]/o.m2 - t.sTot[c]*ki/(o.m2*o.m2)
			if gain > bestGain {
				bestGain = gain
				best = c
			}
		}
	}

	t.sTot[best] += ki
	t.sIn[best] += 2*t.weightTo[best] + aii
	if best != current {
		t.communities[node] = best
		t.improvement = true
	}

	for _, c := range t.touched {
		t.weightTo[c] = 0
		t.seen[c] = false
	}
	t.touched = t.touched[:0]
}

// computeModularity returns Σ_c [sIn_c/m2 - (sTot_c/m2)²]
func (t *task) computeModularity() float64 {
	m2 := t.o.m2
	q := 0.0
	for c := range t.sTot {
		if t.sTot[c] == 0 && t.sIn[c] == 0 {
			continue
		}
		q += t.sIn[c]/m2 - (t.sTot[c]/m2)*(t.sTot[c]/m2)
	}
	return q
}

func (t *task) syncFrom(winner *task) {
	copy(t.communities, winner.communities)
	copy(t.sTot, winner.sTot)
	copy(t.sIn, winner.sIn)
}
