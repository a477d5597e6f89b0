// Package goal drives the per-goal state machine: OPEN while progress is
// below 100, COMPLETED once every task is done and the goal reward has
// been granted, and back to OPEN when a new task reopens a completed
// goal and the goal-level reward is reclaimed.
package goal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/ranking"
	"github.com/fernwood/starquest/internal/reward"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrValidation       = errors.New("validation failed")
)

// GoalStore loads and saves a goal together with its tasks as one
// document. Save is atomic for the goal and its tasks; nothing beyond a
// single document is transactional.
type GoalStore interface {
	GetByID(ctx context.Context, id int64) (*model.Goal, error)
	Save(ctx context.Context, g *model.Goal) error
}

type MemberStore interface {
	GetByID(ctx context.Context, id int64) (*model.Member, error)
	ListByFamily(ctx context.Context, familyID int64) ([]model.Member, error)
	Save(ctx context.Context, m *model.Member) error
}

type FamilyStore interface {
	GetByID(ctx context.Context, id int64) (*model.Family, error)
	Save(ctx context.Context, f *model.Family) error
}

// AchievementStore is the registry consulted when a completed goal names
// an achievement. Unlock reports false when the member already holds it.
type AchievementStore interface {
	GetByID(ctx context.Context, id int64) (*model.Achievement, error)
	Unlock(ctx context.Context, memberID, achievementID int64) (bool, error)
}

type Engine struct {
	goals        GoalStore
	members      MemberStore
	families     FamilyStore
	achievements AchievementStore
	logger       *slog.Logger
}

func NewEngine(gs GoalStore, ms MemberStore, fs FamilyStore, as AchievementStore, logger *slog.Logger) *Engine {
	return &Engine{goals: gs, members: ms, families: fs, achievements: as, logger: logger}
}

// CompletionResult reports what a task completion changed.
type CompletionResult struct {
	Goal          *model.Goal          `json:"goal"`
	Member        *model.Member        `json:"member"`
	GoalCompleted bool                 `json:"goal_completed"`
	Unlocked      []*model.Achievement `json:"unlocked_achievements,omitempty"`
}

// Progress computes the integer completion percentage for a task list:
// round(100 * completed / total), 0 when there are no tasks. Rounding is
// half-away-from-zero, so 1/3 is 33 and 2/3 is 67.
func Progress(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.IsCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(tasks))))
}

// ValidateRewards rejects reward structures that cannot have come from a
// trusted construction path (negative amounts).
func ValidateRewards(r model.Rewards) error {
	if r.Stars < 0 || r.Coins < 0 {
		return fmt.Errorf("%w: rewards must not be negative", ErrValidation)
	}
	return nil
}

// CompleteTask marks one task of a goal completed on behalf of a member,
// credits the task reward, and — when the last open task falls — grants
// the goal reward and unlocks its achievement for every recipient.
//
// Completion is a one-way transition: a second call for the same task
// fails with ErrAlreadyCompleted and changes nothing, which is what makes
// a retry after a partial failure safe.
func (e *Engine) CompleteTask(ctx context.Context, goalID, taskID, memberID int64) (*CompletionResult, error) {
	g, err := e.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("goal %d: %w", goalID, ErrNotFound)
	}

	taskIdx := -1
	for i := range g.Tasks {
		if g.Tasks[i].ID == taskID {
			taskIdx = i
			break
		}
	}
	if taskIdx < 0 {
		return nil, fmt.Errorf("task %d in goal %d: %w", taskID, goalID, ErrNotFound)
	}
	if g.Tasks[taskIdx].IsCompleted {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrAlreadyCompleted)
	}

	completer, err := e.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if completer == nil {
		return nil, fmt.Errorf("member %d: %w", memberID, ErrNotFound)
	}

	family, members, err := e.loadFamilyScope(ctx, g, completer)
	if err != nil {
		return nil, err
	}
	// Fold the completer into the family member snapshot so every delta
	// lands on one instance of the document.
	for i := range members {
		if members[i].ID == completer.ID {
			completer = members[i]
		}
	}

	willComplete := !g.IsCompleted && remainingTasks(g.Tasks, taskIdx) == 0

	// Validate the achievement reference before any mutation so a bad id
	// fails the request instead of stranding half-applied rewards.
	var achievement *model.Achievement
	if willComplete && g.Rewards.AchievementID != nil {
		achievement, err = e.achievements.GetByID(ctx, *g.Rewards.AchievementID)
		if err != nil {
			return nil, fmt.Errorf("load achievement: %w", err)
		}
		if achievement == nil {
			return nil, fmt.Errorf("achievement %d: %w", *g.Rewards.AchievementID, ErrNotFound)
		}
	}

	now := time.Now().UTC()
	task := &g.Tasks[taskIdx]
	task.IsCompleted = true
	task.CompletedAt = &now
	task.CompletedBy = &memberID
	task.CompletionEventID = uuid.NewString()

	reward.ApplyTaskReward(completer, family, task)
	g.Progress = Progress(g.Tasks)

	result := &CompletionResult{Goal: g, Member: completer}

	var recipients []*model.Member
	if willComplete {
		g.IsCompleted = true
		g.CompletedAt = &now

		recipients, err = e.goalRecipients(ctx, g, completer, members)
		if err != nil {
			return nil, err
		}
		reward.ApplyGoalReward(recipients, family, g)
		result.GoalCompleted = true

		if achievement != nil {
			for _, r := range recipients {
				fresh, err := e.achievements.Unlock(ctx, r.ID, achievement.ID)
				if err != nil {
					return nil, fmt.Errorf("unlock achievement: %w", err)
				}
				if fresh && r.ID == completer.ID {
					result.Unlocked = append(result.Unlocked, achievement)
				}
			}
			e.logger.Info("achievement unlocked",
				"achievement", achievement.Title,
				"goal_id", g.ID,
				"recipients", len(recipients))
		}
	}

	// The goal document carries the IsCompleted flags that guard retries,
	// so it is written first: a crash after this write loses reward
	// credit but can never double-grant.
	if err := e.goals.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save goal: %w", err)
	}
	if err := e.saveMembers(ctx, members, append(recipients, completer)...); err != nil {
		return nil, err
	}
	if family != nil {
		if err := e.families.Save(ctx, family); err != nil {
			return nil, fmt.Errorf("save family: %w", err)
		}
		if err := e.RerankFamily(ctx, family.ID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// AddTask appends a task to a goal. Adding to a completed goal reopens
// it: the goal-level reward is reclaimed from every prior recipient
// exactly once, on the true→false edge only.
func (e *Engine) AddTask(ctx context.Context, goalID int64, title string, rewards model.Rewards) (*model.Goal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if err := ValidateRewards(rewards); err != nil {
		return nil, err
	}

	g, err := e.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("goal %d: %w", goalID, ErrNotFound)
	}

	if g.IsCompleted {
		if err := e.reopen(ctx, g); err != nil {
			return nil, err
		}
	}

	g.Tasks = append(g.Tasks, model.Task{
		GoalID:    g.ID,
		Title:     title,
		Rewards:   rewards,
		CreatedAt: time.Now().UTC(),
	})
	g.Progress = Progress(g.Tasks)

	if err := e.goals.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save goal: %w", err)
	}
	return g, nil
}

// reopen reverts a completed goal to OPEN and claws back the goal reward.
func (e *Engine) reopen(ctx context.Context, g *model.Goal) error {
	var owner *model.Member
	if g.OwnerID != nil {
		m, err := e.members.GetByID(ctx, *g.OwnerID)
		if err != nil {
			return fmt.Errorf("load owner: %w", err)
		}
		if m == nil {
			return fmt.Errorf("member %d: %w", *g.OwnerID, ErrNotFound)
		}
		owner = m
	}

	family, members, err := e.loadFamilyScope(ctx, g, owner)
	if err != nil {
		return err
	}
	if owner != nil {
		for i := range members {
			if members[i].ID == owner.ID {
				owner = members[i]
			}
		}
	}

	recipients, err := e.goalRecipients(ctx, g, owner, members)
	if err != nil {
		return err
	}
	for _, r := range recipients {
		reward.ReclaimGoalReward(r, family, g)
	}

	g.IsCompleted = false
	g.CompletedAt = nil

	e.logger.Info("goal reopened", "goal_id", g.ID, "reclaimed_from", len(recipients))

	if err := e.saveMembers(ctx, members, append(recipients, owner)...); err != nil {
		return err
	}
	if family != nil {
		if err := e.families.Save(ctx, family); err != nil {
			return fmt.Errorf("save family: %w", err)
		}
		if err := e.RerankFamily(ctx, family.ID); err != nil {
			return err
		}
	}
	return nil
}

// RerankFamily re-derives every member's rank within a family by lifetime
// stars, tasks completed breaking ties, and persists changed ranks.
func (e *Engine) RerankFamily(ctx context.Context, familyID int64) error {
	members, err := e.members.ListByFamily(ctx, familyID)
	if err != nil {
		return fmt.Errorf("list family members: %w", err)
	}

	entries := make([]ranking.Entry, len(members))
	for i, m := range members {
		entries[i] = ranking.Entry{ID: m.ID, Primary: m.Stars, Secondary: m.TasksCompleted}
	}

	rankByID := make(map[int64]int, len(entries))
	for _, r := range ranking.Assign(entries) {
		rankByID[r.ID] = r.Rank
	}

	for i := range members {
		m := &members[i]
		if m.RankInFamily == rankByID[m.ID] {
			continue
		}
		m.RankInFamily = rankByID[m.ID]
		if err := e.members.Save(ctx, m); err != nil {
			return fmt.Errorf("save member rank: %w", err)
		}
	}
	return nil
}

// loadFamilyScope resolves the family document and member snapshot a goal
// mutation touches. Family goals scope to the goal's family; personal
// goals scope to the acting member's family, which may be absent.
func (e *Engine) loadFamilyScope(ctx context.Context, g *model.Goal, actor *model.Member) (*model.Family, []*model.Member, error) {
	var familyID *int64
	switch {
	case g.Type == model.GoalTypeFamily && g.FamilyID != nil:
		familyID = g.FamilyID
	case actor != nil && actor.FamilyID != nil:
		familyID = actor.FamilyID
	}
	if familyID == nil {
		return nil, nil, nil
	}

	family, err := e.families.GetByID(ctx, *familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("load family: %w", err)
	}
	if family == nil {
		return nil, nil, fmt.Errorf("family %d: %w", *familyID, ErrNotFound)
	}

	list, err := e.members.ListByFamily(ctx, *familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("list family members: %w", err)
	}
	members := make([]*model.Member, len(list))
	for i := range list {
		members[i] = &list[i]
	}
	return family, members, nil
}

// goalRecipients picks who a goal-level grant or reclaim applies to:
// every family member for a family goal, the owning member otherwise.
// The owner of a personal goal gets the goal reward even when someone
// else checked off the final task.
func (e *Engine) goalRecipients(ctx context.Context, g *model.Goal, actor *model.Member, members []*model.Member) ([]*model.Member, error) {
	if g.Type == model.GoalTypeFamily && len(members) > 0 {
		return members, nil
	}
	if g.OwnerID != nil && (actor == nil || actor.ID != *g.OwnerID) {
		for _, m := range members {
			if m.ID == *g.OwnerID {
				return []*model.Member{m}, nil
			}
		}
		owner, err := e.members.GetByID(ctx, *g.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("load owner: %w", err)
		}
		if owner == nil {
			return nil, fmt.Errorf("member %d: %w", *g.OwnerID, ErrNotFound)
		}
		return []*model.Member{owner}, nil
	}
	if actor == nil {
		return nil, nil
	}
	return []*model.Member{actor}, nil
}

// saveMembers persists each touched member document exactly once,
// including extras that sit outside the family snapshot.
func (e *Engine) saveMembers(ctx context.Context, members []*model.Member, extras ...*model.Member) error {
	seen := make(map[int64]bool, len(members)+len(extras))
	save := func(m *model.Member) error {
		if m == nil || seen[m.ID] {
			return nil
		}
		seen[m.ID] = true
		if err := e.members.Save(ctx, m); err != nil {
			return fmt.Errorf("save member: %w", err)
		}
		return nil
	}
	for _, m := range members {
		if err := save(m); err != nil {
			return err
		}
	}
	for _, m := range extras {
		if err := save(m); err != nil {
			return err
		}
	}
	return nil
}

func remainingTasks(tasks []model.Task, completingIdx int) int {
	open := 0
	for i := range tasks {
		if i == completingIdx {
			continue
		}
		if !tasks[i].IsCompleted {
			open++
		}
	}
	return open
}
