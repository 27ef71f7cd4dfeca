package speedrun

import "fmt"

// FormatMillis renders a duration as MM:SS.mmm.
// Minutes are not capped, so an hour-long run shows as 60:00.000.
func FormatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, ms%1000)
}

// MergeBest combines a stored best-milestone record with a new run.
// Each value keeps the smaller time; values missing from best are added.
// Returns the merged record and whether anything improved.
func MergeBest(best, run Milestones) (Milestones, bool) {
	merged := best.Clone()
	improved := false
	for value, ms := range run {
		if cur, ok := merged[value]; !ok || ms < cur {
			merged[value] = ms
			improved = true
		}
	}
	return merged, improved
}
