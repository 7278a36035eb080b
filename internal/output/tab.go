// Package output provides annotation output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/crs4/vispa/internal/annotate"
)

// Columns is the field order of every record line.
var Columns = []string{
	"chrom",
	"pos",
	"name",
	"start",
	"end",
	"strand",
	"tss_d",
	"rel_pos",
	"integration",
}

// TabWriter writes annotation records in delimited text format.
type TabWriter struct {
	w         *bufio.Writer
	delimiter string
	header    bool
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:         bufio.NewWriter(w),
		delimiter: "\t",
	}
}

// SetDelimiter changes the field delimiter.
func (tw *TabWriter) SetDelimiter(d string) {
	if d != "" {
		tw.delimiter = d
	}
}

// SetHeader enables the "#"-prefixed header line written by WriteHeader.
func (tw *TabWriter) SetHeader(on bool) {
	tw.header = on
}

// WriteHeader writes the header line if enabled.
func (tw *TabWriter) WriteHeader() error {
	if !tw.header {
		return nil
	}
	_, err := tw.w.WriteString("#" + strings.Join(Columns, tw.delimiter) + "\n")
	return err
}

// Write writes a single record.
func (tw *TabWriter) Write(rec *annotate.Record) error {
	values := []string{
		rec.Chrom,
		strconv.FormatInt(rec.Pos, 10),
		rec.Name,
		strconv.FormatInt(rec.Start, 10),
		strconv.FormatInt(rec.End, 10),
		rec.Strand.String(),
		strconv.FormatInt(rec.TSSDistance, 10),
		strconv.Itoa(int(rec.RelPos)),
		fmt.Sprintf("%.2f", rec.Integration),
	}

	_, err := tw.w.WriteString(strings.Join(values, tw.delimiter) + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// ReportUnknown writes one line per chromosome that had no catalog entry.
func ReportUnknown(w io.Writer, chroms []string) error {
	for _, c := range chroms {
		if _, err := fmt.Fprintf(w, "no annotation for %q\n", c); err != nil {
			return err
		}
	}
	return nil
}
