package state

import "sort"

// replaceNonZero keeps the current value unless the update is non-zero.
func replaceNonZero[T comparable](current, update T) T {
	var zero T
	if update == zero {
		return current
	}
	return update
}

// appendCapped appends update entries and truncates to the newest max.
// A max of zero means unbounded. Re-applying an identical update is a no-op
// so memory deltas can be retried safely.
func appendCapped[T comparable](current, update []T, max int) []T {
	if len(update) == 0 {
		return current
	}
	if isSuffix(current, update) {
		return current
	}
	out := make([]T, 0, len(current)+len(update))
	out = append(out, current...)
	out = append(out, update...)
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

func isSuffix[T comparable](current, update []T) bool {
	if len(update) > len(current) {
		return false
	}
	tail := current[len(current)-len(update):]
	for i := range update {
		if tail[i] != update[i] {
			return false
		}
	}
	return true
}

// unionStrings merges update values into current, preserving first-seen order
// and dropping duplicates.
func unionStrings(current, update []string) []string {
	if len(update) == 0 {
		return current
	}
	seen := make(map[string]struct{}, len(current)+len(update))
	out := make([]string, 0, len(current)+len(update))
	for _, v := range current {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range update {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// shallowMergeMap overlays update keys onto current; new keys overwrite.
func shallowMergeMap(current, update map[string]string) map[string]string {
	if len(update) == 0 {
		return current
	}
	out := make(map[string]string, len(current)+len(update))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}

// MergeRecommendations applies the keyed-upsert-max merge: at most one entry
// per (partner, opportunity type), higher relevance wins, ties keep the
// earlier insertion, sorted by score descending and capped to max.
func MergeRecommendations(current, update []Recommendation, max int) []Recommendation {
	if len(update) == 0 && len(current) <= max {
		return current
	}
	byKey := make(map[RecommendationKey]int, len(current)+len(update))
	out := cloneRecommendations(current)
	for i, r := range out {
		byKey[r.Key()] = i
	}
	for _, r := range update {
		r.NextSteps = append([]string(nil), r.NextSteps...)
		if i, ok := byKey[r.Key()]; ok {
			if r.RelevanceScore > out[i].RelevanceScore {
				out[i] = r
			}
			continue
		}
		byKey[r.Key()] = len(out)
		out = append(out, r)
	}
	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
