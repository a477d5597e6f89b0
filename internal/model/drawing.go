package model

import "time"

// Drawing is the metadata row for an uploaded drawing; the image itself
// lives in object storage under StorageKey.
type Drawing struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	Title       string    `json:"title"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
