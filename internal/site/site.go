// Package site reads integration sites to be annotated.
package site

// Site is a query position on a chromosome.
type Site struct {
	Chrom string // Chromosome tag, matched verbatim against the catalog
	Pos   int64  // Position, same coordinate system as the catalog intervals
}

// SiteParser is the interface for readers that produce sites.
type SiteParser interface {
	// Next reads the next site.
	// Returns nil, nil when there are no more sites.
	Next() (*Site, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
