package classify

import "sort"

// SuggestImport returns the known API table names closest to an unrecognized
// import, for display in a report alongside a CategoryUnknown verdict.
// Results are edit-distance-threshold-limited and sorted closest first,
// ties broken alphabetically.
//
// Adapted from the teacher's findSimilarIdentifiers/levenshteinDistance
// pair (utils.go), which suggests known identifiers near a misspelled one;
// here the "known identifiers" are apiTable's keys instead of a compiler's
// variable scope.
func SuggestImport(name string, maxSuggestions int) []string {
	const threshold = 3

	type candidate struct {
		name     string
		distance int
	}
	var candidates []candidate
	for known := range apiTable {
		if known == name {
			continue
		}
		dist := levenshteinDistance(name, known)
		if dist <= threshold {
			candidates = append(candidates, candidate{known, dist})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance == candidates[j].distance {
			return candidates[i].name < candidates[j].name
		}
		return candidates[i].distance < candidates[j].distance
	})

	if maxSuggestions > len(candidates) {
		maxSuggestions = len(candidates)
	}
	out := make([]string, maxSuggestions)
	for i := 0; i < maxSuggestions; i++ {
		out[i] = candidates[i].name
	}
	return out
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			matrix[i][j] = minInt(
				matrix[i-1][j]+1,
				minInt(matrix[i][j-1]+1, matrix[i-1][j-1]+cost),
			)
		}
	}
	return matrix[len(s1)][len(s2)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
