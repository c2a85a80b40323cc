package domain

import "time"

// WorkNotice represents a scheduled-work notification submitted by an
// operator: who does what, on which target, for which client, and when.
type WorkNotice struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Worker    string    `json:"worker"`
	Verifier  string    `json:"verifier"`
	Target    string    `json:"target"`
	Client    string    `json:"client"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
