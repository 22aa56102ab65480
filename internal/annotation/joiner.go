package annotation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/evolab/bqh/internal/genbank"
	"github.com/evolab/bqh/internal/snps"
)

// IndexCache persists parsed indexes keyed by their GenBank source.
type IndexCache interface {
	// Get returns a cached index for path, or false if absent or stale.
	Get(path string) (*Index, bool)
	Put(path string, ix *Index) error
}

// Joiner labels calls with the product of the enclosing annotation.
// Safe for concurrent use.
type Joiner struct {
	cache  IndexCache
	logger *zap.Logger

	mu      sync.Mutex
	indexes map[string]*Index // by GenBank path
}

// NewJoiner creates a joiner. cache may be nil.
func NewJoiner(cache IndexCache) *Joiner {
	return &Joiner{
		cache:   cache,
		indexes: make(map[string]*Index),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (j *Joiner) SetLogger(l *zap.Logger) {
	j.logger = l
}

// LoadIndex returns the index for a GenBank file, parsing it once per
// process and consulting the cache first.
func (j *Joiner) LoadIndex(path string) (*Index, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if ix, ok := j.indexes[path]; ok {
		return ix, nil
	}

	if j.cache != nil {
		if ix, ok := j.cache.Get(path); ok {
			j.logger.Debug("annotation index from cache", zap.String("path", path))
			j.indexes[path] = ix
			return ix, nil
		}
	}

	recs, err := genbank.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ix := BuildIndex(recs)
	j.logger.Info("parsed annotation",
		zap.String("path", path),
		zap.Int("contigs", len(recs)),
		zap.Int("intervals", ix.IntervalCount()))

	if j.cache != nil {
		if err := j.cache.Put(path, ix); err != nil {
			j.logger.Warn("could not cache annotation index", zap.String("path", path), zap.Error(err))
		}
	}

	j.indexes[path] = ix
	return ix, nil
}

// Join returns copies of the sample calls labelled with products from ix.
// Calls on contigs missing from the annotation are labelled intergenic.
func (j *Joiner) Join(ix *Index, in []snps.SampleCalls) []snps.SampleCalls {
	out := make([]snps.SampleCalls, len(in))
	for i, sc := range in {
		calls := make([]*snps.Call, len(sc.Calls))
		for k, c := range sc.Calls {
			product, known := ix.Lookup(c.Chrom, c.Pos)
			if !known {
				j.logger.Debug("contig not in annotation",
					zap.String("sample", sc.Sample.Name),
					zap.String("chrom", c.Chrom))
			}
			calls[k] = c.WithProduct(product)
		}
		out[i] = snps.SampleCalls{Sample: sc.Sample, Calls: calls}
	}
	return out
}
