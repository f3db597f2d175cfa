package model

import "time"

// DefaultColor is applied when a project is created without an explicit color
const DefaultColor = "#4ECDC4"

// Project represents a bucket time entries are tracked against
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Color       string     `json:"color"`
	OwnerID     string     `json:"owner_id"`
	IsPinned    bool       `json:"is_pinned"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
	SyncVersion int64      `json:"sync_version"`
}

// NewProject creates a project with defaults
func NewProject(id, name, color, ownerID string) Project {
	if color == "" {
		color = DefaultColor
	}
	now := time.Now()
	return Project{
		ID:        id,
		Name:      name,
		Color:     color,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
