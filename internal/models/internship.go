package models

import "time"

// Internship is a single posting on the board.
type Internship struct {
	ID          int64     `json:"id"`
	Company     string    `json:"company"`
	Batch       string    `json:"batch"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Deadline    time.Time `json:"deadline"`
	PostedBy    int64     `json:"posted_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// InternshipInput carries the user-editable fields of a new posting.
type InternshipInput struct {
	Company     string
	Batch       string
	Description string
	Link        string
	Deadline    time.Time
}

type ListOrder string

const (
	OrderNewest   ListOrder = "newest"
	OrderDeadline ListOrder = "deadline"
)
