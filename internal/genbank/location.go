package genbank

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is the span of a feature.
// Start is a 0-based offset and End the 1-based inclusive end, so a feature
// written as 101..400 has Start 100 and End 400. A site between two bases,
// 100^101, is empty with Start and End both 100. Compound locations
// (join, order) span from their smallest to their largest coordinate.
type Location struct {
	Start  int64
	End    int64
	Strand int8 // +1, or -1 for complement
}

// Len returns the number of bases spanned.
func (l Location) Len() int64 {
	return l.End - l.Start
}

// ParseLocation parses an INSDC feature location such as
// "complement(join(<1..120,300..>450))".
func ParseLocation(s string) (Location, error) {
	loc := Location{Strand: 1}
	rest := strings.ReplaceAll(s, " ", "")
	if rest == "" {
		return loc, fmt.Errorf("empty location")
	}
	if strings.HasPrefix(rest, "complement(") {
		loc.Strand = -1
	}

	start, end := int64(-1), int64(-1)
	for _, tok := range strings.FieldsFunc(rest, isLocationSeparator) {
		switch tok {
		case "complement", "join", "order":
			continue
		}
		// Remote references (ACC.1:10..20) are outside this record.
		if strings.Contains(tok, ":") {
			continue
		}
		from, to, err := parseSpan(tok)
		if err != nil {
			return loc, fmt.Errorf("invalid location %q: %w", s, err)
		}
		if start < 0 || from < start {
			start = from
		}
		if to > end {
			end = to
		}
	}
	if end < 0 {
		return loc, fmt.Errorf("invalid location %q", s)
	}

	loc.Start = start
	loc.End = end
	return loc, nil
}

// parseSpan converts one simple location (x, x..y or x^y) to a 0-based start
// and 1-based end.
func parseSpan(tok string) (int64, int64, error) {
	if a, b, ok := strings.Cut(tok, "^"); ok {
		n, err := parsePosition(a)
		if err != nil {
			return 0, 0, err
		}
		if _, err := parsePosition(b); err != nil {
			return 0, 0, err
		}
		return n, n, nil
	}

	parts := strings.Split(tok, "..")
	from, err := parsePosition(parts[0])
	if err != nil {
		return 0, 0, err
	}
	to, err := parsePosition(parts[len(parts)-1])
	if err != nil {
		return 0, 0, err
	}
	if to < from {
		from, to = to, from
	}
	return from - 1, to, nil
}

func parsePosition(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.Trim(s, "<>"), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("position %d out of range", n)
	}
	return n, nil
}

func isLocationSeparator(r rune) bool {
	return r == '(' || r == ')' || r == ','
}
