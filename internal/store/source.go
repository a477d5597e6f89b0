package store

import (
	"context"

	"github.com/fernwood/starquest/internal/model"
)

// LeaderboardSource bundles the two single-query reads the leaderboard
// aggregator needs into one value.
type LeaderboardSource struct {
	Members  *MemberStore
	Families *FamilyStore
}

func (s LeaderboardSource) ListMembersByFamily(ctx context.Context, familyID int64) ([]model.Member, error) {
	return s.Members.ListByFamily(ctx, familyID)
}

func (s LeaderboardSource) ListFamilies(ctx context.Context) ([]model.Family, error) {
	return s.Families.List(ctx)
}
