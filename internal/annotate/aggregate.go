package annotate

import (
	"math"
	"sort"

	"storycurator/internal/textproc"
)

// Entry is one run-scoped unit of evidence backing a classifier finding.
// The candidate's fields are carried forward unchanged into every entry
// derived from it.
type Entry struct {
	Label      string
	Ref        string
	Category   string
	Severity   string
	Confidence float64
	Rationale  string
	// Run is the non-empty, strictly consecutive sentence ids this entry
	// covers.
	Run []int
	// Evidence is the concatenated sentence text for Run, never empty.
	Evidence string
}

// CategoryResult is the outcome of one classification pass. A pass that
// failed carries its reason in Err and contributes no entries; the caller
// decides how to surface the failure.
type CategoryResult struct {
	Category string
	Entries  []Entry
	Err      error
}

// BuildEntries expands candidates into evidence entries: each candidate's
// span is grouped into consecutive runs and every run that resolves to
// text becomes one entry. Candidates with empty spans or unresolvable runs
// contribute nothing.
func BuildEntries(tagged string, candidates []Candidate) []Entry {
	var entries []Entry
	for _, c := range candidates {
		for _, run := range textproc.GroupRuns(c.Span) {
			evidence := textproc.ExtractForRun(tagged, run)
			if evidence == "" {
				continue
			}
			entries = append(entries, Entry{
				Label:      c.Label,
				Ref:        c.Ref,
				Category:   c.Category,
				Severity:   c.Severity,
				Confidence: c.Confidence,
				Rationale:  c.Rationale,
				Run:        run,
				Evidence:   evidence,
			})
		}
	}
	return entries
}

// Merge concatenates per-pass entries in the order the results are given
// and stable-sorts them by first run id, so ties keep the callers' fixed
// category order no matter which classifier finished first. Failed passes
// are skipped.
func Merge(results []CategoryResult) []Entry {
	var merged []Entry
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		merged = append(merged, r.Entries...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return firstID(merged[i].Run) < firstID(merged[j].Run)
	})
	return merged
}

// Coverage explodes merged entries into a per-sentence index: each id in
// an entry's run gains that entry, in merged order.
func Coverage(entries []Entry) map[int][]Entry {
	index := make(map[int][]Entry)
	for _, e := range entries {
		for _, id := range e.Run {
			index[id] = append(index[id], e)
		}
	}
	return index
}

func firstID(run []int) int {
	if len(run) == 0 {
		return math.MaxInt
	}
	return run[0]
}
