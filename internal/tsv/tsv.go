// Package tsv loads header-indexed tab-separated tables.
package tsv

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Table is a string table addressed by column name.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// Read loads a tab-separated file with a header line.
// Every required column must be present in the header.
// A file holding only the header yields a table with no rows.
func Read(path string, required ...string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	var t *Table
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.WithDelimiter('\t'),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false))
	if df.Err != nil {
		header, ok := headerOnly(data)
		if !ok {
			return nil, fmt.Errorf("read table %s: %w", path, df.Err)
		}
		t = &Table{Header: header}
	} else {
		records := df.Records()
		t = &Table{Header: records[0], Rows: records[1:]}
	}
	t.buildIndex()
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, fmt.Errorf("table %s: missing '%s' column", path, col)
		}
	}
	return t, nil
}

// headerOnly returns the header fields when data has a header line and no
// data lines after it.
func headerOnly(data []byte) ([]string, bool) {
	var header []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if header != nil {
			return nil, false
		}
		header = strings.Split(line, "\t")
	}
	if sc.Err() != nil || header == nil {
		return nil, false
	}
	return header, true
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Header))
	for i, col := range t.Header {
		t.index[col] = i
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table has column col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Get returns the value of col in row i. Missing cells read as "".
func (t *Table) Get(i int, col string) string {
	j, ok := t.index[col]
	if !ok || j >= len(t.Rows[i]) {
		return ""
	}
	v := t.Rows[i][j]
	if v == "NaN" {
		return ""
	}
	return v
}

// Column returns every value of col.
func (t *Table) Column(col string) []string {
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Get(i, col)
	}
	return out
}

// Select returns a table restricted to cols, in that order.
func (t *Table) Select(cols ...string) *Table {
	out := &Table{Header: append([]string(nil), cols...), Rows: make([][]string, len(t.Rows))}
	for i := range t.Rows {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = t.Get(i, col)
		}
		out.Rows[i] = row
	}
	out.buildIndex()
	return out
}

// Distinct returns a table without repeated rows. The first occurrence of
// each row is kept.
func (t *Table) Distinct() *Table {
	out := &Table{Header: t.Header, index: t.index}
	seen := make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		key := strings.Join(row, "\t")
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, row)
	}
	return out
}
