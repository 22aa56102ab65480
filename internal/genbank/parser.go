// Package genbank parses GenBank flat files into records and features.
package genbank

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Feature is an annotated region of a record.
type Feature struct {
	Type       string
	Location   *Location // nil when the location could not be parsed
	RawLoc     string
	Qualifiers map[string][]string
}

// Qualifier returns the first value of a qualifier.
func (f *Feature) Qualifier(key string) (string, bool) {
	vals, ok := f.Qualifiers[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Record is one LOCUS entry (one contig).
type Record struct {
	ID       string // accession.version, else accession, else locus name
	Name     string // locus name
	Length   int64
	Features []*Feature
}

// ParseError reports malformed GenBank input with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("genbank parse error at line %d: %s", e.Line, e.Message)
}

// ReadFile parses a GenBank file, gunzipping when the name ends in .gz.
func ReadFile(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GenBank file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return Parse(reader)
}

const (
	featureKeyCol = 5
	qualifierCol  = 21
)

type section int

const (
	sectionHeader section = iota
	sectionFeatures
	sectionOrigin
)

// parser holds the state of a single pass over the input.
type parser struct {
	line      int
	records   []*Record
	rec       *Record
	accession string
	version   string
	sec       section
	feat      *Feature
	qualKey   string // qualifier currently being continued
	inQuote   bool
}

// Parse reads every record from r.
func Parse(r io.Reader) ([]*Record, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	p := &parser{}
	for scanner.Scan() {
		p.line++
		if err := p.handle(strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GenBank: %w", err)
	}
	if p.rec != nil {
		return nil, &ParseError{Line: p.line, Message: "missing // terminator"}
	}
	return p.records, nil
}

func (p *parser) handle(line string) error {
	if strings.HasPrefix(line, "LOCUS") {
		if p.rec != nil {
			return &ParseError{Line: p.line, Message: "LOCUS before // terminator"}
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return &ParseError{Line: p.line, Message: "LOCUS without name"}
		}
		p.rec = &Record{Name: fields[1]}
		if len(fields) > 2 {
			p.rec.Length, _ = strconv.ParseInt(fields[2], 10, 64)
		}
		p.accession, p.version = "", ""
		p.sec = sectionHeader
		return nil
	}

	if line == "" {
		return nil
	}

	if p.rec == nil {
		return &ParseError{Line: p.line, Message: "expected LOCUS line"}
	}

	if strings.HasPrefix(line, "//") {
		p.finishFeature()
		p.rec.ID = p.recordID()
		p.records = append(p.records, p.rec)
		p.rec = nil
		return nil
	}

	switch {
	case strings.HasPrefix(line, "ACCESSION"):
		if f := strings.Fields(line); len(f) > 1 {
			p.accession = f[1]
		}
		return nil
	case strings.HasPrefix(line, "VERSION"):
		if f := strings.Fields(line); len(f) > 1 {
			p.version = f[1]
		}
		return nil
	case strings.HasPrefix(line, "FEATURES"):
		p.sec = sectionFeatures
		return nil
	case strings.HasPrefix(line, "ORIGIN"), strings.HasPrefix(line, "CONTIG"):
		p.finishFeature()
		p.sec = sectionOrigin
		return nil
	}

	if p.sec == sectionFeatures {
		return p.featureLine(line)
	}
	return nil
}

func (p *parser) recordID() string {
	switch {
	case p.version != "" && p.version != ".":
		return p.version
	case p.accession != "" && p.accession != ".":
		return p.accession
	default:
		return p.rec.Name
	}
}

// featureLine handles one line of the FEATURES table.
func (p *parser) featureLine(line string) error {
	if !strings.HasPrefix(line, "     ") {
		// Another top-level keyword ends the table.
		p.finishFeature()
		p.sec = sectionHeader
		return nil
	}

	if len(line) > featureKeyCol && line[featureKeyCol] != ' ' {
		p.finishFeature()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return &ParseError{Line: p.line, Message: "feature without location"}
		}
		p.feat = &Feature{
			Type:       fields[0],
			RawLoc:     strings.Join(fields[1:], ""),
			Qualifiers: make(map[string][]string),
		}
		return nil
	}

	if p.feat == nil {
		return &ParseError{Line: p.line, Message: "qualifier outside feature"}
	}

	text := strings.TrimSpace(line)

	if p.inQuote {
		p.appendQualifier(text)
		return nil
	}

	if !strings.HasPrefix(text, "/") {
		if len(p.feat.Qualifiers) == 0 {
			p.feat.RawLoc += text
			return nil
		}
		// Unquoted continuation of the previous value.
		p.appendQualifier(text)
		return nil
	}

	key, val, hasVal := strings.Cut(text[1:], "=")
	p.qualKey = key
	if !hasVal {
		p.feat.Qualifiers[key] = append(p.feat.Qualifiers[key], "")
		return nil
	}

	if strings.HasPrefix(val, `"`) {
		val = val[1:]
		if closed, v := closeQuote(val); closed {
			val = v
		} else {
			p.inQuote = true
		}
	}
	p.feat.Qualifiers[key] = append(p.feat.Qualifiers[key], unescape(val))
	return nil
}

// appendQualifier continues the last value of the current qualifier.
func (p *parser) appendQualifier(text string) {
	if p.inQuote {
		if closed, v := closeQuote(text); closed {
			text = v
			p.inQuote = false
		}
	}
	vals := p.feat.Qualifiers[p.qualKey]
	if len(vals) == 0 {
		return
	}
	last := vals[len(vals)-1]
	sep := " "
	if p.qualKey == "translation" || last == "" {
		sep = ""
	}
	vals[len(vals)-1] = last + sep + unescape(text)
}

// closeQuote reports whether s ends an open quoted value and strips the
// closing quote. Doubled quotes are escapes, not terminators.
func closeQuote(s string) (bool, string) {
	trailing := len(s) - len(strings.TrimRight(s, `"`))
	if trailing%2 == 1 {
		return true, s[:len(s)-1]
	}
	return false, s
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

func (p *parser) finishFeature() {
	if p.feat == nil {
		return
	}
	if loc, err := ParseLocation(p.feat.RawLoc); err == nil {
		p.feat.Location = &loc
	}
	p.rec.Features = append(p.rec.Features, p.feat)
	p.feat = nil
	p.qualKey = ""
	p.inQuote = false
}
