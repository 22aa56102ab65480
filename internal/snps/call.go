// Package snps loads per-sample variant calls and derives allele statistics.
package snps

import (
	"errors"
	"fmt"

	"github.com/evolab/bqh/internal/vcf"
)

// Intergenic is the product label of calls outside every annotated feature.
const Intergenic = "intergenic"

// Call is a variant call with derived depth statistics.
type Call struct {
	Chrom       string
	Pos         int64 // 1-based
	Qual        float64
	Depth       int       // INFO DP
	Alts        []string  // alternate alleles
	AltDepths   []int     // INFO AO, one per alternate allele
	AltDepthSum int       // sum of AltDepths
	Freqs       []float64 // AltDepths[i] / Depth
	FreqSum     float64   // AltDepthSum / Depth
	Product     string    // set by the annotation joiner
}

// WithProduct returns a copy of c labelled with product.
func (c *Call) WithProduct(product string) *Call {
	cp := *c
	cp.Product = product
	return &cp
}

var (
	errNoDepth    = errors.New("missing INFO DP")
	errNoAltDepth = errors.New("missing INFO AO")
)

// NewCall derives a Call from a VCF record.
// A zero total depth yields zero frequencies.
func NewCall(v *vcf.Variant) (*Call, error) {
	depth, ok, err := v.InfoInt("DP")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoDepth
	}
	altDepths, ok, err := v.InfoInts("AO")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoAltDepth
	}
	if depth < 0 {
		return nil, fmt.Errorf("negative depth %d", depth)
	}

	c := &Call{
		Chrom:     v.Chrom,
		Pos:       v.Pos,
		Qual:      v.Qual,
		Depth:     depth,
		Alts:      v.Alts(),
		AltDepths: altDepths,
		Freqs:     make([]float64, len(altDepths)),
	}
	for _, d := range altDepths {
		if d < 0 {
			return nil, fmt.Errorf("negative alternate depth %d", d)
		}
		c.AltDepthSum += d
	}
	if c.AltDepthSum > depth {
		return nil, fmt.Errorf("alternate depth %d exceeds total depth %d", c.AltDepthSum, depth)
	}

	if depth > 0 {
		for i, d := range altDepths {
			c.Freqs[i] = float64(d) / float64(depth)
		}
		c.FreqSum = float64(c.AltDepthSum) / float64(depth)
	}

	return c, nil
}
