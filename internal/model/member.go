package model

import "time"

// Member roles within a family.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type Member struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	AvatarEmoji    string    `json:"avatar_emoji"`
	Stars          int       `json:"stars"`
	Coins          int       `json:"coins"`
	TasksCompleted int       `json:"tasks_completed"`
	RankInFamily   int       `json:"rank_in_family"`
	FamilyID       *int64    `json:"family_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
