// Package domain holds the task model exchanged with the LazyDo backend.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ID identifies a task. The backend may send it as a JSON string or number.
type ID string

// UnmarshalJSON accepts "abc", "12" and 12.
func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Urgency ranks how soon a task is needed.
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
)

// Categories offered when posting a task.
var Categories = []string{"Shopping", "Home Repair", "Delivery", "Cleaning", "Other"}

// Task is a posted unit of work.
type Task struct {
	ID          ID         `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Urgency     Urgency    `json:"urgency,omitempty"`
	Reward      float64    `json:"reward"`
	TimeLimit   string     `json:"timeLimit,omitempty"`
	Location    string     `json:"location,omitempty"`
	Status      Status     `json:"status,omitempty"`
	GiverName   string     `json:"giverName,omitempty"`
	GiverRating float64    `json:"giverRating,omitempty"`
	AcceptedBy  string     `json:"acceptedBy,omitempty"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	TakerRating float64    `json:"takerRating,omitempty"`
	Image       string     `json:"image,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Accepted reports whether a taker has picked the task up.
func (t *Task) Accepted() bool {
	return t.AcceptedBy != ""
}

// NewTask is the body of a create request.
type NewTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Urgency     Urgency `json:"urgency,omitempty"`
	Reward      float64 `json:"reward"`
	TimeLimit   string  `json:"timeLimit,omitempty"`
	Location    string  `json:"location,omitempty"`
}

// Update is a partial task update; nil fields are left unchanged.
type Update struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Urgency     *Urgency `json:"urgency,omitempty"`
	Reward      *float64 `json:"reward,omitempty"`
	TimeLimit   *string  `json:"timeLimit,omitempty"`
	Location    *string  `json:"location,omitempty"`
}

// Filters narrow a task listing. Empty fields are not sent.
type Filters struct {
	Category string
	Urgency  Urgency
	Status   Status
	Search   string
}
