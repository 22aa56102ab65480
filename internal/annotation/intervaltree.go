package annotation

import "sort"

// Interval is an annotated span on a contig.
// Start is 0-based and End 1-based inclusive; a position p is contained
// when Start <= p <= End.
type Interval struct {
	Start   int64
	End     int64
	Product string
	Order   int // annotation order; higher wins on overlap
}

// Contains reports whether pos lies inside the interval.
func (iv Interval) Contains(pos int64) bool {
	return pos >= iv.Start && pos <= iv.End
}

// intervalTree answers containment queries using a sorted-slice approach.
// Built once, never modified.
type intervalTree struct {
	intervals []Interval
	maxEnd    []int64 // maxEnd[i] = max(End) for intervals[:i+1]
}

func buildIntervalTree(ivs []Interval) *intervalTree {
	if len(ivs) == 0 {
		return &intervalTree{}
	}

	intervals := make([]Interval, len(ivs))
	copy(intervals, ivs)
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})

	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].End
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].End)
	}

	return &intervalTree{intervals: intervals, maxEnd: maxEnd}
}

// winner returns the containing interval with the highest Order.
func (t *intervalTree) winner(pos int64) (Interval, bool) {
	// Candidates are intervals[:hi], all with Start <= pos.
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].Start > pos
	})

	var best Interval
	found := false
	for i := hi - 1; i >= 0; i-- {
		// No interval in [0, i] reaches pos.
		if t.maxEnd[i] < pos {
			break
		}
		iv := t.intervals[i]
		if iv.End >= pos && (!found || iv.Order > best.Order) {
			best = iv
			found = true
		}
	}
	return best, found
}
