package ranking

import "sort"

// Entry is one scored entity to be ranked. Primary breaks before
// secondary; both may be zero or negative.
type Entry struct {
	ID        int64
	Primary   int
	Secondary int
	Rank      int
}

// Assign sorts entries descending by (primary, secondary) and assigns
// competition ranks: ties share a rank, and the next distinct score takes
// the 1-based position index, so ranks can skip (1, 1, 3) but never gap
// otherwise. The input slice is not modified; the returned slice is a
// sorted copy with Rank set on every entry.
func Assign(entries []Entry) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Primary != ranked[j].Primary {
			return ranked[i].Primary > ranked[j].Primary
		}
		return ranked[i].Secondary > ranked[j].Secondary
	})

	currentRank := 0
	for i := range ranked {
		if i == 0 || ranked[i].Primary != ranked[i-1].Primary || ranked[i].Secondary != ranked[i-1].Secondary {
			currentRank = i + 1
		}
		ranked[i].Rank = currentRank
	}

	return ranked
}
