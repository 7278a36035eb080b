// Package catalog provides the feature catalog index used to find the features
// nearest to a genomic position.
package catalog

import "fmt"

// Strand is the strand a feature lies on: +1 (forward) or -1 (reverse).
type Strand int8

// Strand values.
const (
	Forward Strand = 1
	Reverse Strand = -1
)

// ParseStrand converts "+" or "-" to a Strand.
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return Forward, nil
	case "-":
		return Reverse, nil
	}
	return 0, fmt.Errorf("invalid strand %q", s)
}

// String returns "+" or "-", or "." for an unset strand.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	}
	return "."
}

// MarshalText implements encoding.TextMarshaler.
func (s Strand) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strand) UnmarshalText(b []byte) error {
	v, err := ParseStrand(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Valid returns true if s is Forward or Reverse.
func (s Strand) Valid() bool {
	return s == Forward || s == Reverse
}

// Feature is a named, stranded element attached to an interval.
// Several features (e.g. isoforms) may share the same interval.
type Feature struct {
	Name   string
	Strand Strand
}

// Record is one catalog entry with 0-based, half-open coordinates.
type Record struct {
	Chrom  string
	Start  int64 // 0-based, inclusive
	End    int64 // 0-based, exclusive
	Name   string
	Strand Strand
}

// Validate checks that all required fields are present and consistent.
func (r *Record) Validate() error {
	switch {
	case r.Chrom == "":
		return &RecordError{Field: "chrom", Reason: "missing"}
	case r.Name == "":
		return &RecordError{Field: "name", Reason: "missing"}
	case !r.Strand.Valid():
		return &RecordError{Field: "strand", Reason: fmt.Sprintf("must be + or -, got %s", r.Strand)}
	case r.Start < 0:
		return &RecordError{Field: "start", Reason: fmt.Sprintf("negative start %d", r.Start)}
	case r.End <= r.Start:
		return &RecordError{Field: "end", Reason: fmt.Sprintf("end %d not after start %d", r.End, r.Start)}
	}
	return nil
}

// RecordError reports a malformed catalog record.
type RecordError struct {
	Line   int // 0 if unknown
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed record at line %d: %s: %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record: %s: %s", e.Field, e.Reason)
}
