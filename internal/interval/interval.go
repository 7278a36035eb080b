// Package interval provides disjoint layering of closed genomic intervals and
// nearest-interval lookups over the resulting layers.
package interval

import "fmt"

// Interval is a closed range [Start, End] of genomic coordinates.
// Intervals with equal coordinates are the same interval.
type Interval struct {
	Start int64
	End   int64
}

// Contains returns true if pos lies within the interval, boundaries included.
func (iv Interval) Contains(pos int64) bool {
	return pos >= iv.Start && pos <= iv.End
}

// Overlaps returns true if the two closed intervals share at least one coordinate.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start <= o.End && o.Start <= iv.End
}

// Len returns End - Start.
func (iv Interval) Len() int64 {
	return iv.End - iv.Start
}

// Less orders intervals by (Start, End).
func (iv Interval) Less(o Interval) bool {
	if iv.Start != o.Start {
		return iv.Start < o.Start
	}
	return iv.End < o.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d]", iv.Start, iv.End)
}

// Layer is a sequence of pairwise disjoint intervals sorted by (Start, End).
type Layer []Interval
