package store

import (
	"context"
	"testing"
)

func TestAchievementUnlockOnce(t *testing.T) {
	db := setupTestDB(t)
	as := NewAchievementStore(db)
	ms := NewMemberStore(db)
	ctx := context.Background()

	m, err := ms.Create(ctx, "Ada", "ada@example.com", "h", "child")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	a, err := as.Create(ctx, "Bookworm", "Finish a reading goal", 5, 2)
	if err != nil {
		t.Fatalf("create achievement: %v", err)
	}

	fresh, err := as.Unlock(ctx, m.ID, a.ID)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !fresh {
		t.Error("first unlock should report fresh")
	}

	fresh, err = as.Unlock(ctx, m.ID, a.ID)
	if err != nil {
		t.Fatalf("repeat unlock: %v", err)
	}
	if fresh {
		t.Error("repeat unlock should be a no-op")
	}

	unlocks, err := as.ListUnlocksByMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("list unlocks: %v", err)
	}
	if len(unlocks) != 1 {
		t.Fatalf("len(unlocks) = %d, want 1", len(unlocks))
	}
	if unlocks[0].Title != "Bookworm" {
		t.Errorf("title = %q, want Bookworm", unlocks[0].Title)
	}
}

func TestAchievementList(t *testing.T) {
	as := NewAchievementStore(setupTestDB(t))
	ctx := context.Background()

	for _, title := range []string{"Streak", "Bookworm"} {
		if _, err := as.Create(ctx, title, "", 1, 0); err != nil {
			t.Fatalf("create achievement: %v", err)
		}
	}

	all, err := as.List(ctx)
	if err != nil {
		t.Fatalf("list achievements: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].Title != "Bookworm" || all[1].Title != "Streak" {
		t.Errorf("order = %q, %q, want alphabetical", all[0].Title, all[1].Title)
	}
}
