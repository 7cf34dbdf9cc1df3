package engine

// Static European table layout data. The grid is 12 rows of 3 columns,
// row r holding numbers 3r+1, 3r+2, 3r+3, with 0 at the head. The sets
// below are pure data derived once at startup and never recomputed.

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// IsRed reports whether n is a red pocket. 0 is neither red nor black.
func IsRed(n int) bool { return redNumbers[n] }

var (
	splitSets  [][]int
	streetSets [][]int
	cornerSets [][]int
	lineSets   [][]int
)

func init() {
	// Zero splits with each number of the first row.
	for _, n := range []int{1, 2, 3} {
		splitSets = append(splitSets, []int{0, n})
	}
	for n := 1; n <= 36; n++ {
		// Horizontal split with the right-hand neighbour.
		if n%3 != 0 {
			splitSets = append(splitSets, []int{n, n + 1})
		}
		// Vertical split with the next row down.
		if n+3 <= 36 {
			splitSets = append(splitSets, []int{n, n + 3})
		}
		// Corner anchored at its top-left number.
		if n%3 != 0 && n+4 <= 36 {
			cornerSets = append(cornerSets, []int{n, n + 1, n + 3, n + 4})
		}
	}
	for r := 0; r < 12; r++ {
		street := []int{3*r + 1, 3*r + 2, 3*r + 3}
		streetSets = append(streetSets, street)
		if r < 11 {
			lineSets = append(lineSets, []int{3*r + 1, 3*r + 2, 3*r + 3, 3*r + 4, 3*r + 5, 3*r + 6})
		}
	}
}

func copySets(src [][]int) [][]int {
	out := make([][]int, len(src))
	for i, s := range src {
		out[i] = append([]int(nil), s...)
	}
	return out
}

// Splits returns every legal split (two adjacent numbers, including the
// three zero splits).
func Splits() [][]int { return copySets(splitSets) }

// Streets returns the twelve three-number rows.
func Streets() [][]int { return copySets(streetSets) }

// Corners returns every legal four-number corner.
func Corners() [][]int { return copySets(cornerSets) }

// Lines returns the eleven six-number double rows.
func Lines() [][]int { return copySets(lineSets) }

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, n := range a {
		seen[n]++
	}
	for _, n := range b {
		seen[n]--
		if seen[n] < 0 {
			return false
		}
	}
	return true
}

func knownSet(table [][]int, nums []int) bool {
	for _, s := range table {
		if sameSet(s, nums) {
			return true
		}
	}
	return false
}
