package quality

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
)

// maxBins bounds the number of histogram bins per feature.
const maxBins = 255

// Node is one node of a flattened regression tree. Leaves have Feature -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v,omitempty"`
}

// Tree is a binary regression tree stored as a node array rooted at 0.
// A row goes left when row[Feature] <= Threshold.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for one scaled row.
func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

func (t *Tree) validate(width int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
			return fmt.Errorf("node %d: value not finite", i)
		}
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= width {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		// children always follow their parent, which also rules out cycles
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// binnedMatrix holds quantized feature codes in column-major order.
type binnedMatrix struct {
	rows  int
	edges [][]float64
	codes [][]uint8
}

// binFeatures quantizes every column of x. A value falls in bin b when
// it is <= edges[b] and greater than edges[b-1].
func binFeatures(x [][]float64) *binnedMatrix {
	rows := len(x)
	width := 0
	if rows > 0 {
		width = len(x[0])
	}

	m := &binnedMatrix{
		rows:  rows,
		edges: make([][]float64, width),
		codes: make([][]uint8, width),
	}

	col := make([]float64, rows)
	for j := 0; j < width; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		edges := binEdges(col)
		codes := make([]uint8, rows)
		for i, row := range x {
			codes[i] = uint8(sort.SearchFloat64s(edges, row[j]))
		}
		m.edges[j] = edges
		m.codes[j] = codes
	}
	return m
}

func binEdges(col []float64) []float64 {
	sorted := slices.Clone(col)
	slices.Sort(sorted)
	unique := slices.Compact(sorted)

	if len(unique) < 2 {
		return nil
	}
	if len(unique) <= maxBins {
		edges := make([]float64, 0, len(unique)-1)
		for i := 1; i < len(unique); i++ {
			edges = append(edges, (unique[i-1]+unique[i])/2)
		}
		return edges
	}

	edges := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		q := unique[k*len(unique)/maxBins]
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

// treeParams bounds tree growth.
type treeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
}

// treeBuilder grows one tree on a subset of rows. Splits minimize the
// squared error of y; leaves take leafValue over their rows.
type treeBuilder struct {
	data       *binnedMatrix
	y          []float64
	params     treeParams
	leafValue  func(idx []int) float64
	importance []float64

	counts []int
	sums   []float64
	nodes  []Node
}

func growTree(data *binnedMatrix, y []float64, idx []int, params treeParams, leafValue func(idx []int) float64) (*Tree, []float64) {
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	if leafValue == nil {
		leafValue = func(idx []int) float64 { return meanOf(y, idx) }
	}

	b := &treeBuilder{
		data:       data,
		y:          y,
		params:     params,
		leafValue:  leafValue,
		importance: make([]float64, len(data.codes)),
		counts:     make([]int, maxBins+1),
		sums:       make([]float64, maxBins+1),
	}
	b.build(idx, 0)
	return &Tree{Nodes: b.nodes}, b.importance
}

type split struct {
	feature int
	bin     int
	gain    float64
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	best, ok := b.bestSplit(idx, depth)
	if !ok {
		b.nodes[id].Value = b.leafValue(idx)
		return id
	}

	codes := b.data.codes[best.feature]
	lo, hi := 0, len(idx)-1
	for lo <= hi {
		if int(codes[idx[lo]]) <= best.bin {
			lo++
		} else {
			idx[lo], idx[hi] = idx[hi], idx[lo]
			hi--
		}
	}

	b.importance[best.feature] += best.gain

	left := b.build(idx[:lo], depth+1)
	right := b.build(idx[lo:], depth+1)
	b.nodes[id] = Node{
		Feature:   best.feature,
		Threshold: b.data.edges[best.feature][best.bin],
		Left:      left,
		Right:     right,
	}
	return id
}

func (b *treeBuilder) bestSplit(idx []int, depth int) (split, bool) {
	n := len(idx)
	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		n < b.params.MinSamplesSplit || n < 2*b.params.MinSamplesLeaf {
		return split{}, false
	}

	var total, sumSq float64
	for _, i := range idx {
		total += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	parent := total * total / float64(n)

	// gains below this are rounding noise; pure nodes never split
	tol := 1e-10 * sumSq
	if sumSq-parent <= tol {
		return split{}, false
	}

	best := split{feature: -1, gain: tol}
	for j, codes := range b.data.codes {
		nb := len(b.data.edges[j]) + 1
		if nb < 2 {
			continue
		}
		clear(b.counts[:nb])
		clear(b.sums[:nb])
		for _, i := range idx {
			c := codes[i]
			b.counts[c]++
			b.sums[c] += b.y[i]
		}

		var nl int
		var sl float64
		for bin := 0; bin < nb-1; bin++ {
			nl += b.counts[bin]
			sl += b.sums[bin]
			nr := n - nl
			if nl < b.params.MinSamplesLeaf {
				continue
			}
			if nr < b.params.MinSamplesLeaf {
				break
			}
			sr := total - sl
			gain := sl*sl/float64(nl) + sr*sr/float64(nr) - parent
			if gain > best.gain {
				best = split{feature: j, bin: bin, gain: gain}
			}
		}
	}
	return best, best.feature >= 0
}

func meanOf(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

// normalize scales v in place to sum to 1 when its sum is positive.
func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum > 0 {
		for i := range v {
			v[i] /= sum
		}
	}
	return v
}
