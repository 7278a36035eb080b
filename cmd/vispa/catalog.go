package main

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crs4/vispa/internal/catalog"
	"github.com/crs4/vispa/internal/duckdb"
)

// loadCatalog builds a finalized index from the configured BED file, going
// through the gob cache when catalog.cache-dir is set.
func loadCatalog(cfg CatalogConfig, logger *zap.Logger) (*catalog.Index, error) {
	if cfg.Path == "" {
		return nil, errors.New("no catalog given: pass a BED file or set catalog.path")
	}

	var (
		cc *duckdb.CatalogCache
		fp duckdb.SourceFingerprint
	)
	if cfg.CacheDir != "" && cfg.Path != "-" {
		var err error
		fp, err = duckdb.FingerprintBED(cfg.Path, cfg.SkipMalformed)
		if err != nil {
			return nil, fmt.Errorf("stat catalog: %w", err)
		}
		cc = duckdb.NewCatalogCache(cfg.CacheDir)
		if cc.Valid(fp) {
			start := time.Now()
			idx := catalog.New()
			if err := cc.Load(idx); err != nil {
				logger.Warn("discarding unreadable catalog cache", zap.Error(err))
				cc.Clear()
			} else {
				idx.Finalize()
				logger.Info("loaded catalog from cache",
					zap.String("dir", cfg.CacheDir),
					zap.Int("intervals", idx.IntervalCount()),
					zap.Duration("elapsed", time.Since(start)))
				return idx, nil
			}
		}
	}

	start := time.Now()
	idx, err := catalog.LoadBED(cfg.Path, cfg.SkipMalformed, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded catalog",
		zap.String("path", cfg.Path),
		zap.Int("chromosomes", len(idx.Chromosomes())),
		zap.Int("intervals", idx.IntervalCount()),
		zap.Int("features", idx.FeatureCount()),
		zap.Duration("elapsed", time.Since(start)))

	if cc != nil {
		if err := cc.Write(idx, fp); err != nil {
			logger.Warn("failed to write catalog cache", zap.Error(err))
		}
	}
	return idx, nil
}
