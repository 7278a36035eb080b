// Package server exposes a finalized catalog over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crs4/vispa/internal/annotate"
	"github.com/crs4/vispa/internal/catalog"
	"github.com/crs4/vispa/internal/interval"
)

// Options configures the router.
type Options struct {
	Chooser annotate.Chooser // random source for single mode, nil for the default
	Logger  *zap.Logger
}

// NewRouter builds the gin engine serving lookups against idx.
func NewRouter(idx *catalog.Index, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	single := annotate.NewAnnotator(idx)
	multi := annotate.NewAnnotator(idx)
	multi.SetMulti(true)
	if opts.Chooser != nil {
		single.SetChooser(opts.Chooser)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.GET("/healthz", NewHealthHandler())
	r.GET("/chromosomes", NewChromosomesHandler(idx))
	r.GET("/annotate/:chrom/:pos", NewAnnotateHandler(single, multi))
	r.GET("/closest/:chrom/:pos", NewClosestHandler(idx))
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// NewHealthHandler builds a liveness handler.
func NewHealthHandler() func(c *gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// NewChromosomesHandler lists the chromosomes present in the catalog.
func NewChromosomesHandler(idx *catalog.Index) func(c *gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"chromosomes": idx.Chromosomes()})
	}
}

// NewAnnotateHandler annotates a single site. multi=true reports every tied feature.
func NewAnnotateHandler(single, multi *annotate.Annotator) func(c *gin.Context) {
	return func(c *gin.Context) {
		chrom, pos, ok := siteParams(c)
		if !ok {
			return
		}

		ann := single
		if m, _ := strconv.ParseBool(c.Query("multi")); m {
			ann = multi
		}

		recs, err := ann.Annotate(chrom, pos)
		if err != nil {
			lookupError(c, chrom, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": recs})
	}
}

type span struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// NewClosestHandler reports the nearest intervals to a site and their distance.
func NewClosestHandler(idx *catalog.Index) func(c *gin.Context) {
	return func(c *gin.Context) {
		chrom, pos, ok := siteParams(c)
		if !ok {
			return
		}

		d, ivs, err := idx.Closest(chrom, pos)
		if err != nil {
			lookupError(c, chrom, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"distance": d, "intervals": spans(ivs)})
	}
}

func spans(ivs []interval.Interval) []span {
	out := make([]span, len(ivs))
	for i, iv := range ivs {
		out[i] = span{Start: iv.Start, End: iv.End}
	}
	return out
}

func siteParams(c *gin.Context) (string, int64, bool) {
	chrom := c.Param("chrom")
	pos, err := strconv.ParseInt(c.Param("pos"), 10, 64)
	if err != nil || pos < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position", "pos": c.Param("pos")})
		return "", 0, false
	}
	return chrom, pos, true
}

func lookupError(c *gin.Context, chrom string, err error) {
	if errors.Is(err, catalog.ErrUnknownChromosome) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chromosome", "chrom": chrom})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
