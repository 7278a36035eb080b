package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crs4/vispa/internal/duckdb"
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Query annotation results stored with --db",
		Example: `  vispa results runs --db results.duckdb
  vispa results site chr1 1200345 --db results.duckdb
  vispa results feature TP53`,
	}
	cmd.PersistentFlags().String("db", "", "DuckDB database (default: db.path)")

	cmd.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			runs, err := s.Runs()
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", r.ID, r.Records)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "site <chrom> <pos>",
		Short: "Show stored annotations for a site",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			pos, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid position %q", args[1])
			}
			results, err := s.LookupSite(args[0], pos)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "feature <name>",
		Short: "Show stored annotations for a feature",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			results, err := s.SearchByFeature(args[0])
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all stored results",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, s *duckdb.Store, args []string) error {
			return s.ClearResults()
		}),
	})

	return cmd
}

// withStore opens the configured database around fn.
func withStore(fn func(cmd *cobra.Command, s *duckdb.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, map[string]string{"db.path": "db"}); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DB.Path == "" {
			return errors.New("no database given: pass --db or set db.path")
		}

		s, err := duckdb.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, s, args)
	}
}

type resultView struct {
	RunID       string  `yaml:"run_id"`
	Chrom       string  `yaml:"chrom"`
	Pos         int64   `yaml:"pos"`
	Name        string  `yaml:"name"`
	Start       int64   `yaml:"start"`
	End         int64   `yaml:"end"`
	Strand      string  `yaml:"strand"`
	TSSDistance int64   `yaml:"tss_d"`
	RelPos      string  `yaml:"rel_pos"`
	Integration float64 `yaml:"integration"`
}

func printResults(w io.Writer, results []duckdb.Result) error {
	views := make([]resultView, len(results))
	for i, r := range results {
		rec := r.Record
		views[i] = resultView{
			RunID:       r.RunID,
			Chrom:       rec.Chrom,
			Pos:         rec.Pos,
			Name:        rec.Name,
			Start:       rec.Start,
			End:         rec.End,
			Strand:      rec.Strand.String(),
			TSSDistance: rec.TSSDistance,
			RelPos:      rec.RelPos.String(),
			Integration: rec.Integration,
		}
	}

	out, err := yaml.Marshal(views)
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	_, err = w.Write(out)
	return err
}
