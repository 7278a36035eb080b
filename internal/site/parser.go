package site

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser reads sites from delimited text: chromosome in the first column and
// position in the second. Further columns are ignored.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	delimiter  string
	lineNumber int
}

// Options configures a Parser.
type Options struct {
	Delimiter string // field delimiter, tab if empty
	SkipFirst bool   // skip the first line (e.g. a header)
}

// NewParser creates a parser for the given file.
// Supports plain and gzipped files; use "-" for stdin.
func NewParser(path string, opts Options) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin, opts)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}

	br := bufio.NewReader(file)
	p := &Parser{file: file, reader: br}

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	}

	if err := p.init(opts); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader, opts Options) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.init(opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) init(opts Options) error {
	p.delimiter = opts.Delimiter
	if p.delimiter == "" {
		p.delimiter = "\t"
	}
	if opts.SkipFirst {
		if _, err := p.reader.ReadString('\n'); err != nil && err != io.EOF {
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++
	}
	return nil
}

// Next reads the next site.
// Returns nil, nil when there are no more sites.
func (p *Parser) Next() (*Site, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read site line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Site, error) {
	fields := strings.SplitN(line, p.delimiter, 3)
	if len(fields) < 2 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 2 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil || pos < 0 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	return &Site{Chrom: fields[0], Pos: pos}, nil
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during site parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("site parse error at line %d: %s", e.Line, e.Message)
}
