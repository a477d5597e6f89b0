package ranking

import "testing"

func TestAssignEmpty(t *testing.T) {
	ranked := Assign(nil)
	if len(ranked) != 0 {
		t.Errorf("len = %d, want 0", len(ranked))
	}
}

func TestAssignSingle(t *testing.T) {
	ranked := Assign([]Entry{{ID: 1, Primary: 42, Secondary: 7}})
	if ranked[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", ranked[0].Rank)
	}
}

func TestAssignCompetitionRanking(t *testing.T) {
	ranked := Assign([]Entry{
		{ID: 1, Primary: 100, Secondary: 5},
		{ID: 2, Primary: 50, Secondary: 1},
		{ID: 3, Primary: 100, Secondary: 5},
	})

	wantRanks := map[int64]int{1: 1, 3: 1, 2: 3}
	for _, e := range ranked {
		if e.Rank != wantRanks[e.ID] {
			t.Errorf("id %d: rank = %d, want %d", e.ID, e.Rank, wantRanks[e.ID])
		}
	}
}

func TestAssignSecondaryBreaksTie(t *testing.T) {
	ranked := Assign([]Entry{
		{ID: 1, Primary: 100, Secondary: 3},
		{ID: 2, Primary: 100, Secondary: 9},
	})

	if ranked[0].ID != 2 || ranked[0].Rank != 1 {
		t.Errorf("first = id %d rank %d, want id 2 rank 1", ranked[0].ID, ranked[0].Rank)
	}
	if ranked[1].ID != 1 || ranked[1].Rank != 2 {
		t.Errorf("second = id %d rank %d, want id 1 rank 2", ranked[1].ID, ranked[1].Rank)
	}
}

func TestAssignAllTied(t *testing.T) {
	ranked := Assign([]Entry{
		{ID: 1, Primary: 10, Secondary: 2},
		{ID: 2, Primary: 10, Secondary: 2},
		{ID: 3, Primary: 10, Secondary: 2},
	})

	for _, e := range ranked {
		if e.Rank != 1 {
			t.Errorf("id %d: rank = %d, want 1", e.ID, e.Rank)
		}
	}
}

func TestAssignNegativeScores(t *testing.T) {
	ranked := Assign([]Entry{
		{ID: 1, Primary: -5, Secondary: 0},
		{ID: 2, Primary: 0, Secondary: 0},
		{ID: 3, Primary: -20, Secondary: 1},
	})

	wantOrder := []int64{2, 1, 3}
	for i, want := range wantOrder {
		if ranked[i].ID != want {
			t.Errorf("position %d: id = %d, want %d", i, ranked[i].ID, want)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("position %d: rank = %d, want %d", i, ranked[i].Rank, i+1)
		}
	}
}

// Ranks with duplicates removed must form the competition-ranking pattern:
// start at 1, and each distinct rank equals 1 + the number of entries
// ranked strictly above it.
func TestAssignRankContiguity(t *testing.T) {
	ranked := Assign([]Entry{
		{ID: 1, Primary: 9, Secondary: 0},
		{ID: 2, Primary: 9, Secondary: 0},
		{ID: 3, Primary: 9, Secondary: 0},
		{ID: 4, Primary: 5, Secondary: 2},
		{ID: 5, Primary: 5, Secondary: 2},
		{ID: 6, Primary: 1, Secondary: 0},
	})

	for i, e := range ranked {
		above := 0
		for j := range ranked {
			if ranked[j].Rank < e.Rank {
				above++
			}
		}
		if e.Rank != above+1 {
			t.Errorf("position %d: rank %d with %d entries above", i, e.Rank, above)
		}
	}
}

func TestAssignDoesNotMutateInput(t *testing.T) {
	in := []Entry{
		{ID: 1, Primary: 1},
		{ID: 2, Primary: 2},
	}
	Assign(in)

	if in[0].ID != 1 || in[0].Rank != 0 {
		t.Errorf("input mutated: %+v", in[0])
	}
}
