package model

import "time"

type Achievement struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StarsReward int       `json:"stars_reward"`
	CoinsReward int       `json:"coins_reward"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemberAchievement records a single unlock. Unlocking is idempotent:
// at most one row per (member, achievement) pair.
type MemberAchievement struct {
	ID            int64     `json:"id"`
	MemberID      int64     `json:"member_id"`
	AchievementID int64     `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}
