package model

import "time"

// Goal types. A personal goal is owned by one member, a family goal by
// one family; the two owner references are mutually exclusive.
const (
	GoalTypePersonal = "personal"
	GoalTypeFamily   = "family"
)

// Rewards is the explicit reward structure attached to goals and tasks.
// Values are validated at construction time rather than trusted from
// external content.
type Rewards struct {
	Stars         int    `json:"stars"`
	Coins         int    `json:"coins"`
	AchievementID *int64 `json:"achievement_id,omitempty"`
}

type Goal struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	OwnerID     *int64     `json:"owner_id"`
	FamilyID    *int64     `json:"family_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tasks       []Task     `json:"tasks"`
	IsCompleted bool       `json:"is_completed"`
	Progress    int        `json:"progress"`
	Rewards     Rewards    `json:"rewards"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Task struct {
	ID                int64      `json:"id"`
	GoalID            int64      `json:"goal_id"`
	Title             string     `json:"title"`
	Rewards           Rewards    `json:"rewards"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at"`
	CompletedBy       *int64     `json:"completed_by"`
	CompletionEventID string     `json:"completion_event_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
