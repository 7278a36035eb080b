package catalog

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/crs4/vispa/internal/interval"
)

var (
	// ErrUnknownChromosome is returned for queries on a chromosome with no features.
	ErrUnknownChromosome = errors.New("unknown chromosome")
	// ErrNotFinalized is returned for queries issued before Finalize.
	ErrNotFinalized = errors.New("index not finalized")
	// ErrFinalized is returned when adding records after Finalize.
	ErrFinalized = errors.New("index already finalized")
)

// RecordReader yields catalog records. Next returns io.EOF when done.
type RecordReader interface {
	Next() (*Record, error)
}

// Index holds the features of a catalog, keyed by chromosome.
//
// An Index is filled with Add or Load, then Finalize splits every chromosome
// into disjoint layers. After Finalize the Index is read-only and safe for
// concurrent queries.
type Index struct {
	// intervals stores unique intervals per chromosome, in insertion order
	intervals map[string][]interval.Interval
	features  map[string]map[interval.Interval]map[Feature]struct{}
	layers    map[string][]interval.Layer
	loaded    bool
	finalized bool
}

// New creates an empty index.
func New() *Index {
	return &Index{
		intervals: make(map[string][]interval.Interval),
		features:  make(map[string]map[interval.Interval]map[Feature]struct{}),
	}
}

// Add validates a record and registers its feature under the closed interval
// [Start, End-1].
func (x *Index) Add(rec Record) error {
	if x.finalized {
		return ErrFinalized
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	iv := interval.Interval{Start: rec.Start, End: rec.End - 1}
	byInterval, ok := x.features[rec.Chrom]
	if !ok {
		byInterval = make(map[interval.Interval]map[Feature]struct{})
		x.features[rec.Chrom] = byInterval
	}
	set, ok := byInterval[iv]
	if !ok {
		set = make(map[Feature]struct{})
		byInterval[iv] = set
		x.intervals[rec.Chrom] = append(x.intervals[rec.Chrom], iv)
	}
	set[Feature{Name: rec.Name, Strand: rec.Strand}] = struct{}{}
	return nil
}

// Load adds every record from r until io.EOF. It does nothing if the index
// already holds data, so callers may invoke it speculatively. Records are
// committed only once the whole reader has been consumed: on error the index
// is left as it was and Load may be retried.
func (x *Index) Load(r RecordReader) error {
	if x.loaded || len(x.intervals) > 0 {
		return nil
	}
	if x.finalized {
		return ErrFinalized
	}

	staged := New()
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read catalog record: %w", err)
		}
		if err := staged.Add(*rec); err != nil {
			return fmt.Errorf("add catalog record: %w", err)
		}
	}

	x.intervals = staged.intervals
	x.features = staged.features
	x.loaded = true
	return nil
}

// Finalize splits each chromosome into disjoint layers. Calling it again is a no-op.
func (x *Index) Finalize() {
	if x.finalized {
		return
	}
	x.layers = make(map[string][]interval.Layer, len(x.intervals))
	for chrom, ivs := range x.intervals {
		x.layers[chrom] = interval.Split(ivs)
	}
	x.finalized = true
}

// Finalized returns true once Finalize has run.
func (x *Index) Finalized() bool {
	return x.finalized
}

// Closest returns the distance from pos to the nearest interval(s) on chrom
// and all intervals found at that distance, sorted by (Start, End).
func (x *Index) Closest(chrom string, pos int64) (int64, []interval.Interval, error) {
	if !x.finalized {
		return 0, nil, ErrNotFinalized
	}
	layers, ok := x.layers[chrom]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownChromosome, chrom)
	}

	d, closest := interval.Nearest(layers, pos)
	if len(closest) == 0 {
		panic(fmt.Sprintf("catalog: no candidate interval on loaded chromosome %s", chrom))
	}
	return d, closest, nil
}

// Features returns the features registered on an interval, sorted by name then strand.
func (x *Index) Features(chrom string, iv interval.Interval) []Feature {
	set := x.features[chrom][iv]
	out := make([]Feature, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Strand > out[j].Strand
	})
	return out
}

// Has returns true if chrom has at least one feature.
func (x *Index) Has(chrom string) bool {
	_, ok := x.intervals[chrom]
	return ok
}

// Chromosomes returns a sorted list of chromosomes in the index.
func (x *Index) Chromosomes() []string {
	chroms := make([]string, 0, len(x.intervals))
	for chrom := range x.intervals {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// IntervalCount returns the number of unique intervals across all chromosomes.
func (x *Index) IntervalCount() int {
	n := 0
	for _, ivs := range x.intervals {
		n += len(ivs)
	}
	return n
}

// FeatureCount returns the number of unique (interval, feature) pairs.
func (x *Index) FeatureCount() int {
	n := 0
	for _, byInterval := range x.features {
		for _, set := range byInterval {
			n += len(set)
		}
	}
	return n
}

// Layers returns the disjoint layers of a chromosome, or nil before Finalize.
func (x *Index) Layers(chrom string) []interval.Layer {
	return x.layers[chrom]
}

// Records returns one record per (interval, feature) pair, sorted by
// chromosome, interval and feature.
func (x *Index) Records() []Record {
	var out []Record
	for _, chrom := range x.Chromosomes() {
		ivs := append([]interval.Interval(nil), x.intervals[chrom]...)
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Less(ivs[j]) })
		for _, iv := range ivs {
			for _, f := range x.Features(chrom, iv) {
				out = append(out, Record{
					Chrom:  chrom,
					Start:  iv.Start,
					End:    iv.End + 1,
					Name:   f.Name,
					Strand: f.Strand,
				})
			}
		}
	}
	return out
}
