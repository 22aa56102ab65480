// Package annotation maps variant positions to annotated gene products.
package annotation

import (
	"sort"

	"github.com/evolab/bqh/internal/genbank"
	"github.com/evolab/bqh/internal/snps"
)

// Index holds the product intervals of one reference genome, per contig.
// Read-only once built.
type Index struct {
	intervals map[string][]Interval // annotation order
	trees     map[string]*intervalTree
}

// Builder accumulates intervals in annotation order.
//
// A feature whose (start, end) matches an earlier one on the same contig
// replaces that entry's product but keeps its place in the order.
type Builder struct {
	intervals map[string][]Interval
	slots     map[string]map[[2]int64]int
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		intervals: make(map[string][]Interval),
		slots:     make(map[string]map[[2]int64]int),
	}
}

// Add records a product interval.
func (b *Builder) Add(contig string, start, end int64, product string) {
	slots, ok := b.slots[contig]
	if !ok {
		slots = make(map[[2]int64]int)
		b.slots[contig] = slots
	}

	key := [2]int64{start, end}
	if i, dup := slots[key]; dup {
		b.intervals[contig][i].Product = product
		return
	}

	slots[key] = len(b.intervals[contig])
	b.intervals[contig] = append(b.intervals[contig], Interval{
		Start:   start,
		End:     end,
		Product: product,
		Order:   len(b.intervals[contig]),
	})
}

// AddContig registers a contig with no intervals yet.
func (b *Builder) AddContig(contig string) {
	if _, ok := b.intervals[contig]; !ok {
		b.intervals[contig] = nil
	}
}

// Index freezes the builder into an index.
func (b *Builder) Index() *Index {
	return FromIntervals(b.intervals)
}

// FromIntervals builds an index from intervals already in annotation order.
func FromIntervals(intervals map[string][]Interval) *Index {
	ix := &Index{
		intervals: make(map[string][]Interval, len(intervals)),
		trees:     make(map[string]*intervalTree, len(intervals)),
	}
	for contig, ivs := range intervals {
		ordered := make([]Interval, len(ivs))
		for i, iv := range ivs {
			iv.Order = i
			ordered[i] = iv
		}
		ix.intervals[contig] = ordered
		ix.trees[contig] = buildIntervalTree(ordered)
	}
	return ix
}

// BuildIndex extracts product intervals from parsed GenBank records.
// Features without a product qualifier or a usable location are skipped.
func BuildIndex(records []*genbank.Record) *Index {
	b := NewBuilder()
	for _, rec := range records {
		b.AddContig(rec.ID)
		for _, f := range rec.Features {
			if f.Location == nil {
				continue
			}
			product, ok := f.Qualifier("product")
			if !ok {
				continue
			}
			b.Add(rec.ID, f.Location.Start, f.Location.End, product)
		}
	}
	return b.Index()
}

// Lookup returns the product at pos and whether the contig is annotated.
// Positions outside every interval map to snps.Intergenic.
func (ix *Index) Lookup(contig string, pos int64) (product string, known bool) {
	tree, ok := ix.trees[contig]
	if !ok {
		return snps.Intergenic, false
	}
	if iv, ok := tree.winner(pos); ok {
		return iv.Product, true
	}
	return snps.Intergenic, true
}

// Product returns the product at pos, or snps.Intergenic.
func (ix *Index) Product(contig string, pos int64) string {
	p, _ := ix.Lookup(contig, pos)
	return p
}

// Contigs returns the sorted contig ids.
func (ix *Index) Contigs() []string {
	out := make([]string, 0, len(ix.intervals))
	for c := range ix.intervals {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Intervals returns the intervals of a contig in annotation order.
func (ix *Index) Intervals(contig string) []Interval {
	return ix.intervals[contig]
}

// IntervalCount returns the total number of intervals.
func (ix *Index) IntervalCount() int {
	n := 0
	for _, ivs := range ix.intervals {
		n += len(ivs)
	}
	return n
}

// All returns a copy of every contig's intervals, for serialization.
func (ix *Index) All() map[string][]Interval {
	out := make(map[string][]Interval, len(ix.intervals))
	for c, ivs := range ix.intervals {
		out[c] = append([]Interval(nil), ivs...)
	}
	return out
}
