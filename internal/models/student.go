package models

import "time"

// Student is a roster entry identified inside its collection by a card code.
type Student struct {
	ID              string    `db:"id" json:"id"`
	CollectionCode  string    `db:"collection_code" json:"collection_code"`
	Grade           int       `db:"grade" json:"grade"`
	ClassNumber     int       `db:"class_number" json:"class_number"`
	Number          int       `db:"number" json:"number"`
	Name            string    `db:"name" json:"name"`
	StudentCardCode string    `db:"student_card_code" json:"student_card_code"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
