package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crs4/vispa/internal/annotate"
	"github.com/crs4/vispa/internal/duckdb"
	"github.com/crs4/vispa/internal/output"
	"github.com/crs4/vispa/internal/site"
)

func newAnnotateCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "annotate <sites> [catalog.bed]",
		Short: "Annotate integration sites against a BED feature catalog",
		Long: `Annotate each site (chromosome and position in the first two columns of a
delimited file) with its nearest catalog feature. The catalog defaults to
catalog.path from the config file.`,
		Example: `  vispa annotate sites.tsv genes.bed
  vispa annotate --multi --header -o sites.annot sites.tsv genes.bed
  vispa annotate --db results.duckdb sites.tsv.gz genes.bed.gz
  cat sites.tsv | vispa annotate - genes.bed`,
		Args: cobra.RangeArgs(1, 2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"catalog.skip-malformed": "skip-malformed",
				"catalog.cache-dir":      "cache-dir",
				"annotate.multi":         "multi",
				"annotate.delimiter":     "delimiter",
				"annotate.skip-first":    "skip-first",
				"annotate.header":        "header",
				"annotate.workers":       "workers",
				"annotate.seed":          "seed",
				"db.path":                "db",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				cfg.Catalog.Path = args[1]
			}
			return runAnnotate(cfg, args[0], outputFile, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringP("delimiter", "d", "\t", "field delimiter for input and output")
	cmd.Flags().Bool("skip-first", false, "skip first input line (e.g., header)")
	cmd.Flags().Bool("multi", false, "output every tied feature instead of a random one")
	cmd.Flags().Bool("header", false, "write a '#'-prefixed header line")
	cmd.Flags().Int("workers", 0, "annotation workers (default: number of CPUs)")
	cmd.Flags().Uint64("seed", 0, "seed for the single-mode feature pick (0: nondeterministic)")
	cmd.Flags().String("db", "", "also store results in this DuckDB database")
	cmd.Flags().Bool("skip-malformed", false, "skip malformed catalog records instead of failing")
	cmd.Flags().String("cache-dir", "", "directory for the parsed catalog cache")

	return cmd
}

func runAnnotate(cfg *Config, sitesPath, outputFile string, stdout, stderr io.Writer) error {
	parser, err := site.NewParser(sitesPath, site.Options{
		Delimiter: cfg.Annotate.Delimiter,
		SkipFirst: cfg.Annotate.SkipFirst,
	})
	if err != nil {
		return err
	}
	defer parser.Close()

	idx, err := loadCatalog(cfg.Catalog, logger)
	if err != nil {
		return err
	}

	out := stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	tw := output.NewTabWriter(out)
	tw.SetDelimiter(cfg.Annotate.Delimiter)
	tw.SetHeader(cfg.Annotate.Header)

	var writer annotate.Writer = tw
	runID := uuid.NewString()
	if cfg.DB.Path != "" {
		store, err := duckdb.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		writer = duckdb.NewResultWriter(tw, store, runID)
		logger.Info("storing results", zap.String("db", cfg.DB.Path), zap.String("run_id", runID))
	}

	if err := writer.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	ann := annotate.NewAnnotator(idx)
	ann.SetLogger(logger)
	ann.SetMulti(cfg.Annotate.Multi)
	ann.SetWorkers(cfg.Annotate.Workers)
	if cfg.Annotate.Seed != 0 {
		ann.SetChooser(annotate.SeededChooser(cfg.Annotate.Seed))
	}

	sum, err := ann.AnnotateAll(parser, writer)
	if err != nil {
		return err
	}

	logger.Info("annotation complete",
		zap.String("run_id", runID),
		zap.Int("sites", sum.Sites),
		zap.Int("records", sum.Records),
		zap.Int("unknown_chromosomes", len(sum.Unknown)))

	return output.ReportUnknown(stderr, sum.Unknown)
}
