package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant represents a single record from a VCF file.
type Variant struct {
	Chrom  string                 // Contig name
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifier
	Ref    string                 // Reference allele
	Alt    string                 // Alternate alleles, comma-separated
	Qual   float64                // Quality score, 0 when missing
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs
}

// Alts returns the alternate alleles.
func (v *Variant) Alts() []string {
	if v.Alt == "" || v.Alt == "." {
		return nil
	}
	return strings.Split(v.Alt, ",")
}

// InfoInt returns an integer INFO value.
// ok is false when the key is absent or is a flag.
func (v *Variant) InfoInt(key string) (n int, ok bool, err error) {
	raw, ok := v.Info[key].(string)
	if !ok {
		return 0, false, nil
	}
	n, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("INFO %s: %w", key, err)
	}
	return n, true, nil
}

// InfoInts returns a comma-separated integer list INFO value, one entry per
// alternate allele for Number=A fields.
func (v *Variant) InfoInts(key string) (ns []int, ok bool, err error) {
	raw, ok := v.Info[key].(string)
	if !ok {
		return nil, false, nil
	}
	parts := strings.Split(raw, ",")
	ns = make([]int, len(parts))
	for i, p := range parts {
		ns[i], err = strconv.Atoi(p)
		if err != nil {
			return nil, true, fmt.Errorf("INFO %s: %w", key, err)
		}
	}
	return ns, true, nil
}
