package annotate

import (
	"github.com/crs4/vispa/internal/catalog"
	"github.com/crs4/vispa/internal/interval"
)

// RelPos is the position of a site relative to a feature's transcription direction.
type RelPos int8

// Relative positions.
const (
	Upstream   RelPos = -1
	InGene     RelPos = 0
	Downstream RelPos = 1
)

func (r RelPos) String() string {
	switch r {
	case Upstream:
		return "upstream"
	case InGene:
		return "in_gene"
	case Downstream:
		return "downstream"
	}
	return "unknown"
}

// Record is the annotation of one site against one feature.
type Record struct {
	Chrom       string         `json:"chrom"`
	Pos         int64          `json:"pos"`
	Name        string         `json:"name"`
	Start       int64          `json:"start"`
	End         int64          `json:"end"`
	Strand      catalog.Strand `json:"strand"`
	TSSDistance int64          `json:"tss_d"`
	RelPos      RelPos         `json:"rel_pos"`
	Integration float64        `json:"integration"`
}

// Compute builds the annotation of pos against feature f spanning iv,
// where d is the distance from pos to iv.
//
// The transcription start site is the left end for forward features and
// the right end for reverse ones. Integration is the TSS distance as a
// percentage of the feature length and is only set for in-gene sites.
func Compute(chrom string, pos, d int64, iv interval.Interval, f catalog.Feature) Record {
	left, right := iv.Start, iv.End
	length := right - left

	tss := left
	if f.Strand == catalog.Reverse {
		tss = right
	}
	tssD := pos - tss
	if tssD < 0 {
		tssD = -tssD
	}

	rec := Record{
		Chrom:       chrom,
		Pos:         pos,
		Name:        f.Name,
		Start:       left,
		End:         right,
		Strand:      f.Strand,
		TSSDistance: tssD,
	}

	switch {
	case d == 0:
		rec.RelPos = InGene
		if length > 0 {
			rec.Integration = 100 * float64(tssD) / float64(length)
		}
	case f.Strand == catalog.Forward && pos < left,
		f.Strand == catalog.Reverse && pos > right:
		rec.RelPos = Upstream
	default:
		rec.RelPos = Downstream
	}
	return rec
}
