// Package edgelist loads weighted undirected graphs from whitespace separated edge lists.
//
// Each non-empty line holds "source target [weight]". Lines starting with '#'
// or '%' are comments. Files ending in ".sz" are read as snappy framed streams;
// other files are memory mapped.
package edgelist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dd0wney/cluso-louvain/pkg/graph"
	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// SnappyExt marks snappy compressed edge lists
const SnappyExt = ".sz"

// maxLineBytes bounds a single line of input
const maxLineBytes = 1 << 20

// ErrMalformedLine is wrapped by every ParseError
var ErrMalformedLine = errors.New("malformed edge line")

// ParseError reports the line that could not be parsed
type ParseError struct {
	Line int
	Text string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedLine, e.Err}
}

// Options controls parsing
type Options struct {
	// DefaultWeight is used for lines without a weight column; 0 means 1
	DefaultWeight float64
	// Relabel maps the ids of the file onto dense ids in order of first appearance.
	// Files whose ids are sparse are relabelled even when it is false.
	Relabel bool
}

// Ids below sparseMinID are used as node ids directly. Above it, a file is
// relabelled when its largest id exceeds sparseFactor times its distinct ids.
const (
	sparseMinID  = 1 << 16
	sparseFactor = 4
)

// Loaded is a parsed edge list
type Loaded struct {
	Graph *graph.Graph
	// Labels maps dense node ids back to file ids; nil unless the file was relabelled
	Labels []uint64
	// Edges is the number of edge lines read
	Edges int
}

// Label returns the file id of node
func (l *Loaded) Label(node uint64) uint64 {
	if l.Labels == nil {
		return node
	}
	return l.Labels[node]
}

// ReadFile loads the edge list at path
func ReadFile(path string, opts Options) (*Loaded, error) {
	if strings.HasSuffix(path, SnappyExt) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open edge list: %w", err)
		}
		defer f.Close()
		return Parse(snappy.NewReader(f), opts)
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("map edge list: %w", err)
	}
	defer r.Close()
	return Parse(io.NewSectionReader(r, 0, int64(r.Len())), opts)
}

type rawEdge struct {
	source, target uint64
	weight         float64
}

// Parse reads an edge list from r
func Parse(r io.Reader, opts Options) (*Loaded, error) {
	defaultWeight := opts.DefaultWeight
	if defaultWeight == 0 {
		defaultWeight = 1
	}

	var edges []rawEdge
	ids := roaring64.NewBitmap()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}

		source, target, weight, err := parseLine(line, defaultWeight)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}
		edges = append(edges, rawEdge{source: source, target: target, weight: weight})
		ids.Add(source)
		ids.Add(target)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read edge list: %w", err)
	}

	var labels []uint64
	var index map[uint64]uint64
	if opts.Relabel || sparse(ids) {
		index = make(map[uint64]uint64, ids.GetCardinality())
		labels = make([]uint64, 0, ids.GetCardinality())
	}
	node := func(id uint64) uint64 {
		if index == nil {
			return id
		}
		dense, ok := index[id]
		if !ok {
			dense = uint64(len(labels))
			index[id] = dense
			labels = append(labels, id)
		}
		return dense
	}

	b := graph.NewBuilder(0)
	for _, e := range edges {
		b.AddEdge(node(e.source), node(e.target), e.weight)
	}
	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &Loaded{Graph: g, Labels: labels, Edges: len(edges)}, nil
}

// sparse reports whether using file ids directly would allocate far more nodes than the file has
func sparse(ids *roaring64.Bitmap) bool {
	if ids.IsEmpty() {
		return false
	}
	largest := ids.Maximum()
	return largest >= sparseMinID && largest/sparseFactor >= ids.GetCardinality()
}

func parseLine(line string, defaultWeight float64) (uint64, uint64, float64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return 0, 0, 0, fmt.Errorf("expected 2 or 3 fields, got %d", len(fields))
	}

	source, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("source: %w", err)
	}
	target, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("target: %w", err)
	}

	weight := defaultWeight
	if len(fields) == 3 {
		weight, err = strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("weight: %w", err)
		}
	}
	return source, target, weight, nil
}
