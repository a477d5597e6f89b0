// Package leaderboard composes the rank calculator over a snapshot of
// members or families for a requested time period.
package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/ranking"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodTotal   Period = "total"
)

var ErrUnknownPeriod = errors.New("unknown leaderboard period")

// Source reads all candidates for a board in a single query, so a ranked
// set is always a consistent snapshot.
type Source interface {
	ListMembersByFamily(ctx context.Context, familyID int64) ([]model.Member, error)
	ListFamilies(ctx context.Context) ([]model.Family, error)
}

// Row is one ranked line of a board.
type Row struct {
	Rank  int    `json:"rank"`
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stars int    `json:"stars"`
	Tasks int    `json:"tasks_completed"`
}

// Board is a top-N slice plus, when requested, the querying entity's own
// row even when it falls outside the top N.
type Board struct {
	Period  Period `json:"period"`
	Entries []Row  `json:"entries"`
	Self    *Row   `json:"self,omitempty"`
	Total   int    `json:"total"`
}

type Aggregator struct {
	src Source
}

func New(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// FamilyMembers ranks the members of one family. Members carry lifetime
// counters only, so every period ranks stars with tasks completed as the
// tie breaker.
func (a *Aggregator) FamilyMembers(ctx context.Context, familyID int64, n int, selfID *int64) (*Board, error) {
	members, err := a.src.ListMembersByFamily(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}

	entries := make([]ranking.Entry, len(members))
	names := make(map[int64]string, len(members))
	for i, m := range members {
		entries[i] = ranking.Entry{ID: m.ID, Primary: m.Stars, Secondary: m.TasksCompleted}
		names[m.ID] = m.Name
	}
	return buildBoard(PeriodTotal, entries, names, n, selfID), nil
}

// Families ranks every family by the requested period's counters.
func (a *Aggregator) Families(ctx context.Context, period Period, n int, selfID *int64) (*Board, error) {
	families, err := a.src.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}

	entries := make([]ranking.Entry, len(families))
	names := make(map[int64]string, len(families))
	for i, f := range families {
		primary, secondary, err := periodScores(&f, period)
		if err != nil {
			return nil, err
		}
		entries[i] = ranking.Entry{ID: f.ID, Primary: primary, Secondary: secondary}
		names[f.ID] = f.Name
	}
	return buildBoard(period, entries, names, n, selfID), nil
}

func periodScores(f *model.Family, period Period) (stars, tasks int, err error) {
	switch period {
	case PeriodDaily:
		return f.Stars.Daily, f.TaskCounts.Daily, nil
	case PeriodWeekly:
		return f.Stars.Weekly, f.TaskCounts.Weekly, nil
	case PeriodMonthly:
		return f.Stars.Monthly, f.TaskCounts.Monthly, nil
	case PeriodYearly:
		return f.Stars.Yearly, f.TaskCounts.Yearly, nil
	case PeriodTotal:
		return f.TotalStars, f.TaskCount, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
}

func buildBoard(period Period, entries []ranking.Entry, names map[int64]string, n int, selfID *int64) *Board {
	ranked := ranking.Assign(entries)

	board := &Board{Period: period, Total: len(ranked), Entries: []Row{}}
	for i, e := range ranked {
		row := Row{Rank: e.Rank, ID: e.ID, Name: names[e.ID], Stars: e.Primary, Tasks: e.Secondary}
		if i < n {
			board.Entries = append(board.Entries, row)
		}
		if selfID != nil && e.ID == *selfID {
			self := row
			board.Self = &self
		}
	}
	return board
}
