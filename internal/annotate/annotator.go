// Package annotate classifies integration sites against their nearest catalog features.
package annotate

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/crs4/vispa/internal/catalog"
	"github.com/crs4/vispa/internal/interval"
	"github.com/crs4/vispa/internal/site"
)

// FeatureLookup finds the features closest to a position.
// *catalog.Index satisfies it once finalized.
type FeatureLookup interface {
	Closest(chrom string, pos int64) (int64, []interval.Interval, error)
	Features(chrom string, iv interval.Interval) []catalog.Feature
}

// Chooser returns an index in [0, n).
type Chooser func(n int) int

// SeededChooser returns a reproducible Chooser safe for concurrent use.
func SeededChooser(seed uint64) Chooser {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	}
}

// Annotator annotates sites with their nearest features.
type Annotator struct {
	lookup  FeatureLookup
	multi   bool
	workers int
	choose  Chooser
	logger  *zap.Logger
}

// NewAnnotator creates a new annotator over the given lookup.
func NewAnnotator(l FeatureLookup) *Annotator {
	return &Annotator{
		lookup: l,
		choose: rand.IntN,
		logger: zap.NewNop(),
	}
}

// SetMulti configures whether every tied feature is reported instead of a single random one.
func (a *Annotator) SetMulti(multi bool) {
	a.multi = multi
}

// SetWorkers sets the worker pool size for AnnotateAll. 0 means runtime.NumCPU().
func (a *Annotator) SetWorkers(n int) {
	a.workers = n
}

// SetChooser replaces the random source used in single mode.
func (a *Annotator) SetChooser(c Chooser) {
	a.choose = c
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Annotate returns the annotation records for a site. Candidates are ordered by
// interval, then by feature name and strand. In single mode one record is picked
// at random from that set.
func (a *Annotator) Annotate(chrom string, pos int64) ([]*Record, error) {
	d, ivs, err := a.lookup.Closest(chrom, pos)
	if err != nil {
		return nil, err
	}

	var recs []*Record
	for _, iv := range ivs {
		for _, f := range a.lookup.Features(chrom, iv) {
			rec := Compute(chrom, pos, d, iv, f)
			recs = append(recs, &rec)
		}
	}

	if a.multi || len(recs) <= 1 {
		return recs, nil
	}
	return []*Record{recs[a.choose(len(recs))]}, nil
}

// Summary reports the outcome of a batch run.
type Summary struct {
	Sites   int
	Records int
	Unknown []string // chromosomes with no catalog entry, sorted
}

// AnnotateAll annotates all sites from a parser and writes records in input order.
// Sites on chromosomes missing from the catalog are collected in the summary.
func (a *Annotator) AnnotateAll(parser site.SiteParser, writer Writer) (*Summary, error) {
	workers := a.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	items := make(chan WorkItem, 2*workers)
	var parseErr error
	sum := &Summary{}

	go func() {
		defer close(items)
		seq := 0
		for {
			s, err := parser.Next()
			if err != nil {
				parseErr = fmt.Errorf("read site: %w", err)
				return
			}
			if s == nil {
				return
			}
			items <- WorkItem{Seq: seq, Site: s}
			seq++
		}
	}()

	results := a.ParallelAnnotate(items, workers)

	unknown := make(map[string]struct{})
	if err := OrderedCollect(results, func(r WorkResult) error {
		sum.Sites++
		if r.Err != nil {
			if errors.Is(r.Err, catalog.ErrUnknownChromosome) {
				unknown[r.Site.Chrom] = struct{}{}
				return nil
			}
			return fmt.Errorf("annotate %s:%d: %w", r.Site.Chrom, r.Site.Pos, r.Err)
		}
		for _, rec := range r.Records {
			if err := writer.Write(rec); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
			sum.Records++
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if parseErr != nil {
		return nil, parseErr
	}

	for chrom := range unknown {
		sum.Unknown = append(sum.Unknown, chrom)
	}
	sort.Strings(sum.Unknown)

	if sum.Sites == 0 {
		a.logger.Info("0 sites processed")
	}

	return sum, writer.Flush()
}

// Writer defines the interface for writing annotation records.
type Writer interface {
	WriteHeader() error
	Write(rec *Record) error
	Flush() error
}
