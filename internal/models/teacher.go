package models

import "time"

// Teacher is a directory entry keyed by an external teacher id.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	CollectionCode string    `db:"collection_code" json:"collection_code"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	Name           string    `db:"name" json:"name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
