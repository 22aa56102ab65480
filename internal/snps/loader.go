package snps

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/evolab/bqh/internal/samples"
	"github.com/evolab/bqh/internal/vcf"
)

// CallSetFile is the call-set file name inside an Illumina sample directory.
const CallSetFile = "var.vcf"

// SampleCalls attaches the loaded calls to their sample.
type SampleCalls struct {
	Sample *samples.Sample
	Calls  []*Call
}

// Loader reads call sets and applies the quality filter.
type Loader struct {
	filter  Filter
	workers int
	logger  *zap.Logger
}

// NewLoader creates a loader with the given quality filter.
func NewLoader(f Filter) *Loader {
	return &Loader{
		filter: f,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// SetWorkers sets the number of concurrent sample loads. 0 means NumCPU.
func (l *Loader) SetWorkers(n int) {
	l.workers = n
}

// Load reads the call-set file at path.
// An absent file is logged and yields no calls.
func (l *Loader) Load(path string) ([]*Call, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("call set not found", zap.String("path", path))
			return nil, nil
		}
		return nil, err
	}
	defer p.Close()
	l.logger.Debug("reading call set",
		zap.String("path", path),
		zap.Strings("samples", p.SampleNames()),
		zap.Int("header_lines", len(p.Header())))

	calls, err := l.Read(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return calls, nil
}

// Read consumes all records from a parser.
// Records lacking depth fields are skipped with a warning.
func (l *Loader) Read(p vcf.VariantParser) ([]*Call, error) {
	var calls []*Call
	for {
		v, err := p.Next()
		if err != nil {
			return nil, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			return calls, nil
		}

		c, err := NewCall(v)
		if err != nil {
			l.logger.Warn("skipping call",
				zap.String("chrom", v.Chrom),
				zap.Int64("pos", v.Pos),
				zap.Int("line", p.LineNumber()),
				zap.Error(err))
			continue
		}

		if l.filter.Keep(c.Qual) {
			calls = append(calls, c)
		}
	}
}

// LoadSamples loads the call set of every sample, in parallel, and returns
// the results in input order.
func (l *Loader) LoadSamples(ctx context.Context, ss []*samples.Sample) ([]SampleCalls, error) {
	items := make(chan workItem)

	go func() {
		defer close(items)
		for i, s := range ss {
			select {
			case items <- workItem{seq: i, sample: s}:
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make([]SampleCalls, 0, len(ss))
	err := orderedCollect(l.parallelLoad(items, l.workers), func(r workResult) error {
		if r.err != nil {
			return fmt.Errorf("load sample %s: %w", r.sample.Name, r.err)
		}
		l.logger.Debug("loaded call set",
			zap.String("sample", r.sample.Name),
			zap.Int("calls", len(r.calls)))
		out = append(out, SampleCalls{Sample: r.sample, Calls: r.calls})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
