package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/evolab/bqh/internal/snps"
)

// CallRow is one stored annotated call.
type CallRow struct {
	RunID       string
	Strain      string
	Sample      string
	Treatment   string
	Cosm        string
	Timepoint   string
	Chrom       string
	Pos         int64
	Qual        float64
	Depth       int64
	AltDepthSum int64
	FreqSum     float64
	Product     string
}

// ProductCount summarizes how widespread calls in one product are.
type ProductCount struct {
	Product string
	Samples int64
	Calls   int64
}

// WriteCalls batch-inserts the annotated calls of one strain using the
// Appender API.
func (s *Store) WriteCalls(runID, strain string, scs []snps.SampleCalls) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "snp_calls")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, sc := range scs {
		smp := sc.Sample
		for _, c := range sc.Calls {
			if err := appender.AppendRow(
				runID, strain, smp.Name, smp.Treatment, smp.Cosm, smp.Timepoint,
				c.Chrom, c.Pos, c.Qual, int64(c.Depth), int64(c.AltDepthSum),
				c.FreqSum, c.Product,
			); err != nil {
				return fmt.Errorf("append call: %w", err)
			}
		}
	}

	return appender.Flush()
}

// Clear removes all stored calls.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM snp_calls")
	return err
}

const callColumns = `run_id, strain, sample, treatment, cosm, timepoint,
		chrom, pos, qual, depth, alt_depth_sum, freq_sum, product`

// CallsByProduct returns the stored calls of a strain inside product.
func (s *Store) CallsByProduct(strain, product string) ([]CallRow, error) {
	rows, err := s.db.Query(`SELECT `+callColumns+`
		FROM snp_calls
		WHERE strain=? AND product=?
		ORDER BY sample, timepoint, chrom, pos`, strain, product)
	if err != nil {
		return nil, fmt.Errorf("query by product: %w", err)
	}
	defer rows.Close()

	var out []CallRow
	for rows.Next() {
		var r CallRow
		if err := rows.Scan(
			&r.RunID, &r.Strain, &r.Sample, &r.Treatment, &r.Cosm, &r.Timepoint,
			&r.Chrom, &r.Pos, &r.Qual, &r.Depth, &r.AltDepthSum, &r.FreqSum, &r.Product,
		); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return out, nil
}

// ProductCounts returns per-product sample and call counts for a strain,
// most widespread first. Intergenic calls are excluded.
func (s *Store) ProductCounts(strain string) ([]ProductCount, error) {
	rows, err := s.db.Query(`SELECT product, COUNT(DISTINCT sample), COUNT(*)
		FROM snp_calls
		WHERE strain=? AND product<>?
		GROUP BY product
		ORDER BY 2 DESC, product`, strain, snps.Intergenic)
	if err != nil {
		return nil, fmt.Errorf("query product counts: %w", err)
	}
	defer rows.Close()

	var out []ProductCount
	for rows.Next() {
		var pc ProductCount
		if err := rows.Scan(&pc.Product, &pc.Samples, &pc.Calls); err != nil {
			return nil, fmt.Errorf("scan product count: %w", err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product counts: %w", err)
	}
	return out, nil
}
