package catalog

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/feat"
	"github.com/biogo/biogo/io/featio/bed"
	"github.com/biogo/biogo/seq"
	"go.uber.org/zap"
)

// BEDReader reads catalog records from a BED6 file (plain or gzipped).
// Comment, track and browser lines are ignored.
type BEDReader struct {
	file       *os.File
	gzipReader *gzip.Reader
	lines      *lineFilter
	bed        *bed.Reader
	lineNumber int
	skipped    int

	// SkipMalformed makes Next log and skip malformed records instead of
	// returning them as errors.
	SkipMalformed bool

	logger *zap.Logger
}

// OpenBED opens a BED file for reading. Use "-" for stdin.
func OpenBED(path string) (*BEDReader, error) {
	if path == "-" {
		return NewBEDReader(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open BED file: %w", err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("read BED file: %w", err)
	}

	var (
		src io.Reader = br
		gz  *gzip.Reader
	)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err = gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		src = gz
	}

	r, err := NewBEDReader(src)
	if err != nil {
		if gz != nil {
			gz.Close()
		}
		f.Close()
		return nil, err
	}
	r.file = f
	r.gzipReader = gz
	return r, nil
}

// NewBEDReader creates a reader over uncompressed BED content.
func NewBEDReader(r io.Reader) (*BEDReader, error) {
	lines := &lineFilter{r: bufio.NewReader(r)}
	br, err := bed.NewReader(lines, 6)
	if err != nil {
		return nil, fmt.Errorf("create BED6 reader: %w", err)
	}
	return &BEDReader{lines: lines, bed: br, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger used to report skipped records.
func (r *BEDReader) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Next returns the next valid record, or io.EOF at the end of input.
func (r *BEDReader) Next() (*Record, error) {
	for {
		consumed := r.bed.Line()
		f, err := r.bed.Read()
		if err != nil && r.bed.Line() == consumed {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read BED line: %w", err)
		}
		r.lineNumber = r.lines.pop()

		rec, perr := r.record(f, err)
		if perr == nil {
			return rec, nil
		}
		if !r.SkipMalformed {
			return nil, perr
		}
		r.skipped++
		r.logger.Warn("skipping malformed BED record",
			zap.Int("line", r.lineNumber),
			zap.Error(perr))
	}
}

// bedFields names the BED6 columns in the order biogo reports them.
var bedFields = [...]string{"chrom", "start", "end", "name", "score", "strand"}

// record converts the result of one biogo read into a validated Record.
func (r *BEDReader) record(f feat.Feature, err error) (*Record, error) {
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) && pe.Column >= 0 && pe.Column < len(bedFields) {
			return nil, &RecordError{Line: r.lineNumber, Field: bedFields[pe.Column], Reason: pe.Err.Error()}
		}
		return nil, &RecordError{Line: r.lineNumber, Field: "line", Reason: "expected 6 tab-separated fields"}
	}
	b, ok := f.(*bed.Bed6)
	if !ok {
		return nil, &RecordError{Line: r.lineNumber, Field: "line", Reason: fmt.Sprintf("unexpected feature type %T", f)}
	}

	rec := &Record{
		Chrom:  b.Chrom,
		Start:  int64(b.ChromStart),
		End:    int64(b.ChromEnd),
		Name:   b.FeatName,
		Strand: fromSeqStrand(b.FeatStrand),
	}
	if err := rec.Validate(); err != nil {
		err.(*RecordError).Line = r.lineNumber
		return nil, err
	}
	return rec, nil
}

func fromSeqStrand(s seq.Strand) Strand {
	switch s {
	case seq.Plus:
		return Forward
	case seq.Minus:
		return Reverse
	}
	return 0
}

func isBEDHeader(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

// lineFilter feeds the biogo reader with data lines only, each newline
// terminated, and remembers the source line number of every line it passes on.
type lineFilter struct {
	r     *bufio.Reader
	buf   []byte
	n     int
	lines []int
	err   error
}

func (f *lineFilter) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		if f.err != nil {
			return 0, f.err
		}
		line, err := f.r.ReadString('\n')
		f.err = err
		if line == "" {
			continue
		}
		f.n++
		if isBEDHeader(strings.TrimSpace(line)) {
			continue
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		f.buf = []byte(line)
		f.lines = append(f.lines, f.n)
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

// pop returns the source line number of the oldest line not yet parsed.
func (f *lineFilter) pop() int {
	if len(f.lines) == 0 {
		return 0
	}
	n := f.lines[0]
	f.lines = f.lines[1:]
	return n
}

// LineNumber returns the current line number being processed.
func (r *BEDReader) LineNumber() int {
	return r.lineNumber
}

// Skipped returns the number of malformed records skipped so far.
func (r *BEDReader) Skipped() int {
	return r.skipped
}

// Close closes the reader and underlying file.
func (r *BEDReader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// LoadBED reads a BED file into a new finalized index.
func LoadBED(path string, skipMalformed bool, logger *zap.Logger) (*Index, error) {
	r, err := OpenBED(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	r.SkipMalformed = skipMalformed
	if logger != nil {
		r.SetLogger(logger)
	}

	idx := New()
	if err := idx.Load(r); err != nil {
		return nil, err
	}
	idx.Finalize()
	return idx, nil
}
