package grid

// MergeLine slides and merges a single line toward index 0.
// Returns the resulting line (same length, right-padded with empty cells)
// and the indices in the result that hold a freshly merged tile.
//
// A tile produced by a merge never merges again in the same call, so
// [2 2 4 0] becomes [4 4 0 0] and [2 2 2 2] becomes [4 4 0 0].
func MergeLine(line []int) (result []int, merged []int) {
	result = make([]int, len(line))
	writePos := 0
	canMerge := false // result[writePos-1] has not merged yet

	for _, v := range line {
		if v == 0 {
			continue
		}

		if canMerge && result[writePos-1] == v {
			// Merge with previous tile
			result[writePos-1] *= 2
			merged = append(merged, writePos-1)
			canMerge = false
			continue
		}

		// Move tile
		result[writePos] = v
		writePos++
		canMerge = true
	}

	return result, merged
}

// reverseLine returns a reversed copy of a line.
func reverseLine(line []int) []int {
	n := len(line)
	result := make([]int, n)
	for i := range n {
		result[i] = line[n-1-i]
	}
	return result
}

// isTile reports whether v is a legal non-empty tile value (a power of two >= 2).
func isTile(v int) bool {
	return v >= 2 && v&(v-1) == 0
}
