package models

import "time"

// User is a registered account. PasswordHash holds a bcrypt digest and is
// never serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Project groups tasks under a single owner. The owner is set from the
// authenticated identity at creation and never changes.
type Project struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Priority    string     `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Task belongs to exactly one project. It carries no owner of its own;
// its effective owner is the parent project's owner.
type Task struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DefaultPriority is assigned to projects created without one.
const DefaultPriority = "Medium"

// DefaultStatus is assigned to tasks created without one.
const DefaultStatus = "To Do"

// ValidPriorities enumerates the accepted project priorities.
var ValidPriorities = map[string]struct{}{
	"High":   {},
	"Medium": {},
	"Low":    {},
}

// ValidTaskStatuses enumerates the accepted task statuses.
var ValidTaskStatuses = map[string]struct{}{
	"To Do":       {},
	"In Progress": {},
	"Completed":   {},
}
