package models

import (
	"time"

	"github.com/lib/pq"
)

// Collection scopes students, teachers, subjects and records behind one code.
type Collection struct {
	ID           string         `db:"id" json:"id"`
	Code         string         `db:"code" json:"code"`
	Name         string         `db:"name" json:"name"`
	AdminKeyHash string         `db:"admin_key_hash" json:"-"`
	Subjects     pq.StringArray `db:"subjects" json:"subjects"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasSubject reports whether subject is configured for the collection.
func (c *Collection) HasSubject(subject string) bool {
	for _, s := range c.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}
