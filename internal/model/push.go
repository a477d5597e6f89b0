package model

import "time"

type PushSubscription struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification types used for push payload tags.
const (
	NotifTypeGoalCompleted       = "goal_completed"
	NotifTypeAchievementUnlocked = "achievement_unlocked"
	NotifTypeTaskCompleted       = "task_completed"
)
