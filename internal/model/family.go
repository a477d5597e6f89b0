package model

import "time"

// PeriodCounters holds the four rolling windows for a family aggregate.
// Each window accumulates independently and is zeroed by the period
// scheduler at its boundary; the windows are not required to sum to the
// lifetime total.
type PeriodCounters struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
	Yearly  int `json:"yearly"`
}

type Family struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	TotalStars int            `json:"total_stars"`
	TaskCount  int            `json:"task_count"`
	Stars      PeriodCounters `json:"stars"`
	TaskCounts PeriodCounters `json:"task_counts"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
