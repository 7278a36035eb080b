package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/crs4/vispa/internal/annotate"
	"github.com/crs4/vispa/internal/catalog"
)

// Result is a stored annotation record tagged with the run that produced it.
type Result struct {
	RunID  string
	Record *annotate.Record
}

// Run summarizes the records stored for one run.
type Run struct {
	ID      string
	Records int64
}

const resultColumns = `run_id, chrom, pos, name, start, end_, strand, tss_d, rel_pos, integration`

// WriteResults batch-inserts annotation records into DuckDB using the Appender API.
func (s *Store) WriteResults(runID string, recs []*annotate.Record) error {
	if len(recs) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "annotation_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range recs {
		if err := appender.AppendRow(
			runID, r.Chrom, r.Pos, r.Name, r.Start, r.End,
			r.Strand.String(), r.TSSDistance, int8(r.RelPos), r.Integration,
		); err != nil {
			return fmt.Errorf("append annotation result: %w", err)
		}
	}

	return appender.Flush()
}

// ClearResults removes all stored annotation results.
func (s *Store) ClearResults() error {
	_, err := s.db.Exec("DELETE FROM annotation_results")
	return err
}

// LookupSite returns every stored result for a site, across runs.
func (s *Store) LookupSite(chrom string, pos int64) ([]Result, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM annotation_results
		WHERE chrom=? AND pos=?
		ORDER BY run_id, start, end_, name`,
		chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("query site: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// SearchByFeature returns every stored result annotated with the named feature.
func (s *Store) SearchByFeature(name string) ([]Result, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM annotation_results
		WHERE name=?
		ORDER BY run_id, chrom, pos`, name)
	if err != nil {
		return nil, fmt.Errorf("query by feature: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// Runs lists stored runs with their record counts.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, count(*)
		FROM annotation_results
		GROUP BY run_id
		ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Records); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// scanResults scans rows into Result slices.
func scanResults(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var (
			runID, strand string
			relPos        int8
			rec           annotate.Record
		)
		if err := rows.Scan(
			&runID, &rec.Chrom, &rec.Pos, &rec.Name, &rec.Start, &rec.End,
			&strand, &rec.TSSDistance, &relPos, &rec.Integration,
		); err != nil {
			return nil, fmt.Errorf("scan annotation result: %w", err)
		}

		st, err := catalog.ParseStrand(strand)
		if err != nil {
			return nil, fmt.Errorf("scan annotation result: %w", err)
		}
		rec.Strand = st
		rec.RelPos = annotate.RelPos(relPos)

		r := rec
		results = append(results, Result{RunID: runID, Record: &r})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation results: %w", err)
	}
	return results, nil
}

// ResultWriter forwards records to another writer and stores them in batches.
type ResultWriter struct {
	next      annotate.Writer
	store     *Store
	runID     string
	batchSize int
	pending   []*annotate.Record
}

// NewResultWriter wraps next so that every record written is also stored under runID.
func NewResultWriter(next annotate.Writer, store *Store, runID string) *ResultWriter {
	return &ResultWriter{next: next, store: store, runID: runID, batchSize: 10000}
}

// WriteHeader writes the header of the wrapped writer.
func (w *ResultWriter) WriteHeader() error {
	return w.next.WriteHeader()
}

// Write passes rec on and queues it for storage.
func (w *ResultWriter) Write(rec *annotate.Record) error {
	if err := w.next.Write(rec); err != nil {
		return err
	}
	w.pending = append(w.pending, rec)
	if len(w.pending) >= w.batchSize {
		return w.flushPending()
	}
	return nil
}

// Flush stores queued records and flushes the wrapped writer.
func (w *ResultWriter) Flush() error {
	if err := w.flushPending(); err != nil {
		return err
	}
	return w.next.Flush()
}

func (w *ResultWriter) flushPending() error {
	if err := w.store.WriteResults(w.runID, w.pending); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	w.pending = w.pending[:0]
	return nil
}
