// Package assembly summarizes PacBio assemblies and reference genomes.
package assembly

import (
	"fmt"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// Contig is one FASTA record.
type Contig struct {
	ID  string
	Seq []byte
}

// Len returns the contig length in bases.
func (c Contig) Len() int {
	return len(c.Seq)
}

// ReadContigs reads every record of a FASTA file in file order.
func ReadContigs(path string) ([]Contig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta: %w", err)
	}
	defer f.Close()

	var out []Contig
	sc := seqio.NewScanner(fasta.NewReader(f, linear.NewSeq("", nil, alphabet.DNAredundant)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		b := make([]byte, len(s.Seq))
		for i, l := range s.Seq {
			b[i] = byte(l)
		}
		out = append(out, Contig{ID: s.Name(), Seq: b})
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("read fasta %s: %w", path, err)
	}
	return out, nil
}

// ContigMap indexes contigs by id.
func ContigMap(contigs []Contig) map[string]Contig {
	m := make(map[string]Contig, len(contigs))
	for _, c := range contigs {
		m[c.ID] = c
	}
	return m
}

// TotalLength returns the summed length of contigs.
func TotalLength(contigs []Contig) int {
	n := 0
	for _, c := range contigs {
		n += c.Len()
	}
	return n
}

// GCContent returns the percentage of G and C bases over the concatenated
// contigs. Lowercase bases do not count as GC.
func GCContent(contigs []Contig) float64 {
	gc, total := 0, 0
	for _, c := range contigs {
		for _, b := range c.Seq {
			if b == 'G' || b == 'C' {
				gc++
			}
		}
		total += c.Len()
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(gc) / float64(total)
}
