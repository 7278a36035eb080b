package interval

import "sort"

// Split partitions intervals into layers of pairwise disjoint intervals.
//
// Intervals are sorted by (Start, End) and layers are filled one at a time:
// starting from the first unassigned interval, a layer repeatedly takes the
// first remaining interval that starts strictly after the end of the last one
// it took. Leftovers seed the next layer. The number of layers equals the
// maximum number of intervals covering any single coordinate. The input is not
// modified.
func Split(intervals []Interval) []Layer {
	if len(intervals) == 0 {
		return nil
	}

	remaining := make([]Interval, len(intervals))
	copy(remaining, intervals)
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].Less(remaining[j])
	})

	var layers []Layer
	for len(remaining) > 0 {
		layer, rest := fillLayer(remaining)
		layers = append(layers, layer)
		remaining = rest
	}
	return layers
}

// fillLayer takes a maximal disjoint chain from sorted, beginning with its
// first interval, and returns the chain and the intervals left over, both in
// sorted order.
func fillLayer(sorted []Interval) (Layer, []Interval) {
	layer := Layer{sorted[0]}
	var rest []Interval

	i := 0
	for {
		last := sorted[i].End
		tail := sorted[i+1:]
		j := sort.Search(len(tail), func(k int) bool {
			return tail[k].Start > last
		})
		rest = append(rest, tail[:j]...)
		if j == len(tail) {
			return layer, rest
		}
		i += j + 1
		layer = append(layer, sorted[i])
	}
}

// Depth returns the maximum number of intervals covering a single coordinate.
func Depth(intervals []Interval) int {
	type event struct {
		pos   int64
		delta int
	}
	events := make([]event, 0, 2*len(intervals))
	for _, iv := range intervals {
		events = append(events, event{iv.Start, 1}, event{iv.End + 1, -1})
	}
	// Closings sort before openings at the same coordinate: [a,b] and [b+1,c] do not overlap.
	sort.Slice(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		return events[i].delta < events[j].delta
	})

	depth, best := 0, 0
	for _, e := range events {
		depth += e.delta
		if depth > best {
			best = depth
		}
	}
	return best
}
