package models

import "time"

// ViewerType distinguishes the two kinds of viewer identity.
type ViewerType string

const (
	ViewerStudent ViewerType = "student"
	ViewerTeacher ViewerType = "teacher"
)

// Valid reports whether t is a known viewer type.
func (t ViewerType) Valid() bool {
	return t == ViewerStudent || t == ViewerTeacher
}

// Viewer identifies who is looking at records. Key is the student card code or
// the teacher id; it is not an authenticated identity.
type Viewer struct {
	Type ViewerType `json:"viewer_type"`
	Key  string     `json:"viewer_key"`
}

// Anonymous reports whether the viewer lacks a type or key.
func (v Viewer) Anonymous() bool {
	return v.Type == "" || v.Key == ""
}

// RecordSeen is the last time one viewer identity opened a record.
type RecordSeen struct {
	RecordID   string     `db:"record_id" json:"record_id"`
	ViewerType ViewerType `db:"viewer_type" json:"viewer_type"`
	ViewerKey  string     `db:"viewer_key" json:"viewer_key"`
	LastSeenAt time.Time  `db:"last_seen_at" json:"last_seen_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// ViewerIdentity is returned when someone joins a collection.
type ViewerIdentity struct {
	CollectionCode string     `json:"collection_code"`
	CollectionName string     `json:"collection_name"`
	ViewerType     ViewerType `json:"viewer_type"`
	ViewerKey      string     `json:"viewer_key"`
	Name           string     `json:"name,omitempty"`
	StudentID      string     `json:"student_id,omitempty"`
}
