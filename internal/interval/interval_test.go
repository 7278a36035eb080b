package interval

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split(nil))
	assert.Empty(t, Split([]Interval{}))
}

func TestSplit_SinglePoint(t *testing.T) {
	layers := Split([]Interval{{5, 5}, {5, 5}, {6, 6}})
	require.Len(t, layers, 2)
	assert.Equal(t, Layer{{5, 5}, {6, 6}}, layers[0])
	assert.Equal(t, Layer{{5, 5}}, layers[1])
}

func TestSplit_Fixture(t *testing.T) {
	data := []Interval{
		{0, 4}, {5, 6}, {8, 9},
		{1, 2}, {3, 7},
		{1, 10},
	}
	orig := append([]Interval(nil), data...)

	layers := Split(data)
	assert.Equal(t, orig, data, "input must not be reordered")
	checkLayers(t, data, layers)
	assert.Len(t, layers, 3)
}

func TestSplit_FillsOneLayerAtATime(t *testing.T) {
	tests := []struct {
		name string
		data []Interval
		want []Layer
	}{
		{
			name: "chr1 fixture",
			data: []Interval{{1, 5}, {8, 10}, {1, 2}, {4, 6}},
			want: []Layer{{{1, 2}, {4, 6}, {8, 10}}, {{1, 5}}},
		},
		{
			name: "nested",
			data: []Interval{{0, 4}, {5, 6}, {8, 9}, {1, 2}, {3, 7}, {1, 10}},
			want: []Layer{{{0, 4}, {5, 6}, {8, 9}}, {{1, 2}, {3, 7}}, {{1, 10}}},
		},
		{
			name: "skipped intervals seed the next layer",
			data: []Interval{{1, 3}, {2, 4}, {3, 9}, {5, 6}, {7, 8}},
			want: []Layer{{{1, 3}, {5, 6}, {7, 8}}, {{2, 4}}, {{3, 9}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.data))
		})
	}
}

func TestSplit_TouchingEndpointsGoToSeparateLayers(t *testing.T) {
	layers := Split([]Interval{{1, 5}, {5, 8}})
	require.Len(t, layers, 2, "closed intervals sharing a coordinate overlap")

	layers = Split([]Interval{{1, 5}, {6, 8}})
	require.Len(t, layers, 1)
	assert.Equal(t, Layer{{1, 5}, {6, 8}}, layers[0])
}

func TestSplit_Duplicates(t *testing.T) {
	data := []Interval{{10, 20}, {10, 20}, {10, 20}}
	layers := Split(data)
	checkLayers(t, data, layers)
	assert.Len(t, layers, 3)
}

func TestSplit_Idempotent(t *testing.T) {
	data := []Interval{{1, 5}, {8, 10}, {1, 2}, {4, 6}}
	assert.Equal(t, Split(data), Split(data))
}

func TestSplit_Random(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	for round := 0; round < 200; round++ {
		n := r.IntN(60)
		data := make([]Interval, n)
		for i := range data {
			start := r.Int64N(200)
			data[i] = Interval{Start: start, End: start + r.Int64N(30)}
		}
		checkLayers(t, data, Split(data))
	}
}

// checkLayers asserts coverage, per-layer order and disjointness, and minimality.
func checkLayers(t *testing.T, data []Interval, layers []Layer) {
	t.Helper()

	var all []Interval
	for _, l := range layers {
		require.NotEmpty(t, l)
		for i := 1; i < len(l); i++ {
			assert.Less(t, l[i-1].End, l[i].Start, "layer not sorted/disjoint: %v", l)
		}
		all = append(all, l...)
	}

	want := append([]Interval(nil), data...)
	sortIntervals(want)
	sortIntervals(all)
	if len(want) == 0 {
		assert.Empty(t, all)
	} else {
		assert.Equal(t, want, all, "layers must cover the input exactly")
	}
	assert.Equal(t, Depth(data), len(layers), "layer count must equal overlap depth")
}

func sortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Less(ivs[j]) })
}

func TestDepth(t *testing.T) {
	tests := []struct {
		name string
		data []Interval
		want int
	}{
		{"empty", nil, 0},
		{"single", []Interval{{1, 1}}, 1},
		{"adjacent", []Interval{{1, 4}, {5, 9}}, 1},
		{"touching", []Interval{{1, 5}, {5, 9}}, 2},
		{"nested", []Interval{{1, 10}, {2, 9}, {3, 8}, {20, 30}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Depth(tt.data))
		})
	}
}

func TestFindClosest(t *testing.T) {
	layer := Layer{{5, 7}, {15, 25}}
	first, second := layer[0], layer[1]

	for pos := int64(0); pos < 30; pos++ {
		d, got := FindClosest(layer, pos)
		switch {
		case pos < 5:
			assert.Equal(t, 5-pos, d, "pos=%d", pos)
			assert.Equal(t, []Interval{first}, got, "pos=%d", pos)
		case pos < 8:
			assert.Equal(t, int64(0), d, "pos=%d", pos)
			assert.Equal(t, []Interval{first}, got, "pos=%d", pos)
		case pos < 11:
			assert.Equal(t, pos-7, d, "pos=%d", pos)
			assert.Equal(t, []Interval{first}, got, "pos=%d", pos)
		case pos == 11:
			assert.Equal(t, int64(4), d, "midpoint tie")
			assert.Equal(t, []Interval{first, second}, got, "midpoint tie")
		case pos < 15:
			assert.Equal(t, 15-pos, d, "pos=%d", pos)
			assert.Equal(t, []Interval{second}, got, "pos=%d", pos)
		case pos < 26:
			assert.Equal(t, int64(0), d, "pos=%d", pos)
			assert.Equal(t, []Interval{second}, got, "pos=%d", pos)
		default:
			assert.Equal(t, pos-25, d, "pos=%d", pos)
			assert.Equal(t, []Interval{second}, got, "pos=%d", pos)
		}
	}
}

func TestFindClosest_SingleInterval(t *testing.T) {
	layer := Layer{{10, 10}}

	d, got := FindClosest(layer, 10)
	assert.Equal(t, int64(0), d)
	assert.Equal(t, []Interval{{10, 10}}, got)

	d, _ = FindClosest(layer, 3)
	assert.Equal(t, int64(7), d)

	d, _ = FindClosest(layer, 12)
	assert.Equal(t, int64(2), d)
}

func TestFindClosest_EmptyLayerPanics(t *testing.T) {
	assert.Panics(t, func() { FindClosest(nil, 1) })
}

func TestNearest_NoLayers(t *testing.T) {
	d, got := Nearest(nil, 10)
	assert.Equal(t, int64(-1), d)
	assert.Empty(t, got)
}

func TestNearest_TiesAcrossLayers(t *testing.T) {
	// Layers as produced by Split for the chr1 fixture.
	layers := Split([]Interval{{1, 5}, {8, 10}, {1, 2}, {4, 6}})

	tests := []struct {
		pos  int64
		d    int64
		want []Interval
	}{
		{0, 1, []Interval{{1, 2}, {1, 5}}},
		{1, 0, []Interval{{1, 2}, {1, 5}}},
		{2, 0, []Interval{{1, 2}, {1, 5}}},
		{3, 0, []Interval{{1, 5}}},
		{4, 0, []Interval{{1, 5}, {4, 6}}},
		{5, 0, []Interval{{1, 5}, {4, 6}}},
		{6, 0, []Interval{{4, 6}}},
		{7, 1, []Interval{{4, 6}, {8, 10}}},
		{8, 0, []Interval{{8, 10}}},
		{10, 0, []Interval{{8, 10}}},
		{11, 1, []Interval{{8, 10}}},
	}
	for _, tt := range tests {
		d, got := Nearest(layers, tt.pos)
		assert.Equal(t, tt.d, d, "pos=%d", tt.pos)
		assert.Equal(t, tt.want, got, "pos=%d", tt.pos)
	}
}

func TestNearest_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 11))
	for round := 0; round < 100; round++ {
		seen := make(map[Interval]bool)
		var data []Interval
		for i := 0; i < 1+r.IntN(40); i++ {
			start := r.Int64N(500)
			iv := Interval{Start: start, End: start + r.Int64N(40)}
			if !seen[iv] {
				seen[iv] = true
				data = append(data, iv)
			}
		}
		layers := Split(data)

		for pos := int64(0); pos <= 560; pos += 7 {
			wantD, want := bruteNearest(data, pos)
			d, got := Nearest(layers, pos)
			require.Equal(t, wantD, d, "round=%d pos=%d", round, pos)
			require.Equal(t, want, got, "round=%d pos=%d", round, pos)
		}
	}
}

func bruteNearest(data []Interval, pos int64) (int64, []Interval) {
	dist := func(iv Interval) int64 {
		switch {
		case iv.Contains(pos):
			return 0
		case pos < iv.Start:
			return iv.Start - pos
		default:
			return pos - iv.End
		}
	}

	best := int64(-1)
	for _, iv := range data {
		if d := dist(iv); best < 0 || d < best {
			best = d
		}
	}
	var out []Interval
	for _, iv := range data {
		if dist(iv) == best {
			out = append(out, iv)
		}
	}
	sortIntervals(out)
	return best, out
}
