package model

import "time"

type JournalEntry struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Mood      string    `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
