package service

import "sort"

type dedupKey struct {
	source string
	text   string
}

// mergeResults combines per-query result lists into one deduplicated,
// score-ranked list of at most limit entries. Lists are consumed in
// planned-query order and duplicates (same source and text) keep their
// first occurrence regardless of score. The final sort is stable and by
// descending score, with a missing score ranked as 0, so ties keep their
// encounter order. No rank fusion or per-query weighting is applied.
func mergeResults(lists [][]Result, limit int) []Result {
	seen := make(map[dedupKey]struct{})
	var merged []Result

	for _, list := range lists {
		for _, r := range list {
			key := dedupKey{source: r.Source(), text: r.Text}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return scoreOf(merged[i]) > scoreOf(merged[j])
	})

	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func scoreOf(r Result) float32 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}
