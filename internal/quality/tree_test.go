package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func TestBinEdges(t *testing.T) {
	assert.Nil(t, binEdges([]float64{3, 3, 3}))
	assert.Equal(t, []float64{1.5, 2.5}, binEdges([]float64{3, 1, 2, 2}))

	many := make([]float64, 1000)
	for i := range many {
		many[i] = float64(i)
	}
	edges := binEdges(many)
	assert.LessOrEqual(t, len(edges), maxBins-1)
	for i := 1; i < len(edges); i++ {
		assert.Greater(t, edges[i], edges[i-1])
	}
}

func TestBinFeatures_CodesMatchThresholds(t *testing.T) {
	x := [][]float64{{0.1}, {0.5}, {0.9}, {0.5}}
	m := binFeatures(x)

	require.Len(t, m.edges[0], 2)
	for i, row := range x {
		bin := int(m.codes[0][i])
		if bin < len(m.edges[0]) {
			assert.LessOrEqual(t, row[0], m.edges[0][bin])
		}
		if bin > 0 {
			assert.Greater(t, row[0], m.edges[0][bin-1])
		}
	}
}

func TestGrowTree_StepFunction(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 0; i < 200; i++ {
		v := float64(i) / 200
		x = append(x, []float64{v, float64(i % 7)})
		if v <= 0.5 {
			y = append(y, 10)
		} else {
			y = append(y, 90)
		}
	}

	tree, imp := growTree(binFeatures(x), y, allRows(len(x)), treeParams{MaxDepth: 3, MinSamplesSplit: 2}, nil)

	assert.Equal(t, 10.0, tree.Predict([]float64{0.2, 3}))
	assert.Equal(t, 90.0, tree.Predict([]float64{0.8, 3}))
	assert.Greater(t, imp[0], 0.0)
	assert.Zero(t, imp[1])
	assert.Equal(t, 1, tree.Depth())
	assert.NoError(t, tree.validate(2))
}

func TestGrowTree_RespectsLimits(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 0; i < 300; i++ {
		x = append(x, []float64{float64(i)})
		y = append(y, float64(i*i%97))
	}
	data := binFeatures(x)

	shallow, _ := growTree(data, y, allRows(len(x)), treeParams{MaxDepth: 4, MinSamplesSplit: 2}, nil)
	assert.LessOrEqual(t, shallow.Depth(), 4)

	// a node with fewer rows than MinSamplesSplit stays a leaf
	stump, _ := growTree(data, y, allRows(len(x)), treeParams{MaxDepth: 10, MinSamplesSplit: 301}, nil)
	assert.Len(t, stump.Nodes, 1)
	assert.InDelta(t, meanOf(y, allRows(len(y))), stump.Nodes[0].Value, 1e-9)
}

func TestGrowTree_CustomLeafValue(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 1, 1, 1}

	tree, _ := growTree(binFeatures(x), y, allRows(4), treeParams{MaxDepth: 2}, func(idx []int) float64 {
		return float64(len(idx))
	})

	// constant targets never split
	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, 4.0, tree.Predict([]float64{10}))
}

func TestTree_Validate(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
	}{
		{"empty", nil},
		{"feature out of range", []Node{{Feature: 5, Left: 1, Right: 2}, {Feature: -1}, {Feature: -1}}},
		{"child points back", []Node{{Feature: 0, Left: 0, Right: 1}, {Feature: -1}}},
		{"child out of range", []Node{{Feature: 0, Left: 1, Right: 9}, {Feature: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := &Tree{Nodes: tt.nodes}
			assert.Error(t, tree.validate(2))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.75}, normalize([]float64{1, 3}))
	assert.Equal(t, []float64{0, 0}, normalize([]float64{0, 0}))
}
