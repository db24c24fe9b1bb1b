package textproc

import (
	"math"
	"sort"
	"strings"
)

// NormalizeSpan converts a raw classifier span reference into a sorted id
// list. A single integer becomes a one-element list; a collection is copied
// and sorted. Anything else (missing, wrong type, fractional numbers)
// yields an empty list, never an error.
func NormalizeSpan(raw any) []int {
	switch v := raw.(type) {
	case int:
		return []int{v}
	case int64:
		return []int{int(v)}
	case float64:
		if v != math.Trunc(v) {
			return []int{}
		}
		return []int{int(v)}
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		sort.Ints(out)
		return out
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case int64:
				out = append(out, int(n))
			case float64:
				if n == math.Trunc(n) {
					out = append(out, int(n))
				}
			}
		}
		sort.Ints(out)
		return out
	default:
		return []int{}
	}
}

// GroupRuns partitions a sorted id list into maximal runs of consecutive
// integers. Repeated ids extend the current run without fabricating a
// break, so [1,2,2,3] collapses into one run.
func GroupRuns(ids []int) [][]int {
	if len(ids) == 0 {
		return nil
	}
	var runs [][]int
	current := []int{ids[0]}
	for _, id := range ids[1:] {
		last := current[len(current)-1]
		switch {
		case id == last:
			// duplicate id, already covered
		case id == last+1:
			current = append(current, id)
		default:
			runs = append(runs, current)
			current = []int{id}
		}
	}
	return append(runs, current)
}

// ExtractForRun resolves a run of tag numbers back into sentence text,
// joined by single spaces. Ids that resolve to nothing are skipped; a run
// with no resolvable ids yields "".
func ExtractForRun(tagged string, run []int) string {
	parts := make([]string, 0, len(run))
	for _, id := range run {
		if s := ExtractSentence(tagged, id); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
