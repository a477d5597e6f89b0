// Package reward applies star/coin/task-count deltas to member and
// family aggregates. All mutations happen in memory; callers persist the
// touched documents afterwards. Balances are never clamped — a reclaim
// can drive a member negative, which is preferable to hiding bad data.
package reward

import "github.com/fernwood/starquest/internal/model"

// ApplyTaskReward credits a completed task to the member and, when the
// member belongs to a family, to the family's lifetime and period
// counters. Every period window is incremented; the period scheduler is
// responsible for zeroing expired windows, so the ledger never needs to
// know which windows are current.
func ApplyTaskReward(member *model.Member, family *model.Family, task *model.Task) {
	member.Stars += task.Rewards.Stars
	member.Coins += task.Rewards.Coins
	member.TasksCompleted++

	if family == nil {
		return
	}
	family.TotalStars += task.Rewards.Stars
	family.TaskCount++
	addToAll(&family.Stars, task.Rewards.Stars)
	addToAll(&family.TaskCounts, 1)
}

// ApplyGoalReward credits a goal's completion reward to every recipient.
// Each member receives the full stars/coins grant independently — family
// goals are not split. The family's lifetime and period star counters
// grow once per recipient; task counts are untouched because completing
// a goal is not itself a task.
func ApplyGoalReward(members []*model.Member, family *model.Family, goal *model.Goal) {
	for _, m := range members {
		m.Stars += goal.Rewards.Stars
		m.Coins += goal.Rewards.Coins
		if family != nil {
			family.TotalStars += goal.Rewards.Stars
			addToAll(&family.Stars, goal.Rewards.Stars)
		}
	}
}

// ReclaimGoalReward takes back a previously granted goal reward from a
// single member. Period counters are one-way accumulators and are left
// alone; only the scheduler resets them.
func ReclaimGoalReward(member *model.Member, family *model.Family, goal *model.Goal) {
	member.Stars -= goal.Rewards.Stars
	member.Coins -= goal.Rewards.Coins
	if family != nil {
		family.TotalStars -= goal.Rewards.Stars
	}
}

func addToAll(c *model.PeriodCounters, n int) {
	c.Daily += n
	c.Weekly += n
	c.Monthly += n
	c.Yearly += n
}
