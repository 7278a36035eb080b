package interval

import "sort"

// FindClosest returns the distance from pos to the nearest interval of a
// non-empty layer, together with the nearest interval(s).
//
// The distance is 0 when pos falls inside an interval. Two intervals are
// returned only when pos lies in a gap exactly halfway between them.
func FindClosest(l Layer, pos int64) (int64, []Interval) {
	if len(l) == 0 {
		panic("interval: FindClosest on empty layer")
	}

	// i is the first interval starting after pos.
	i := sort.Search(len(l), func(i int) bool {
		return l[i].Start > pos
	})

	switch i {
	case 0:
		return l[0].Start - pos, []Interval{l[0]}
	case len(l):
		last := l[len(l)-1]
		return max(0, pos-last.End), []Interval{last}
	}

	left, right := l[i-1], l[i]
	dl, dr := pos-left.End, right.Start-pos
	switch {
	case dr < dl:
		return dr, []Interval{right}
	case dl < dr:
		return max(0, dl), []Interval{left}
	default:
		return dl, []Interval{left, right}
	}
}

// Nearest runs FindClosest on every layer and returns the smallest distance
// along with every interval, from any layer, found at that distance. The
// intervals are sorted by (Start, End). It returns -1, nil when there are no
// layers.
func Nearest(layers []Layer, pos int64) (int64, []Interval) {
	best := int64(-1)
	var closest []Interval

	for _, l := range layers {
		d, ivs := FindClosest(l, pos)
		switch {
		case best < 0 || d < best:
			best = d
			closest = append(closest[:0], ivs...)
		case d == best:
			closest = append(closest, ivs...)
		}
	}

	sort.Slice(closest, func(i, j int) bool {
		return closest[i].Less(closest[j])
	})
	return best, closest
}
