package models

import "time"

// RevisionNoteInitial marks the seed revision written at record creation.
const RevisionNoteInitial = "initial creation"

// Record holds the current text for one (student, subject) pair and its history.
// Content always equals the result of applying Revisions in order to "".
type Record struct {
	ID             string     `db:"id" json:"id"`
	CollectionCode string     `db:"collection_code" json:"collection_code"`
	StudentID      string     `db:"student_id" json:"student_id"`
	Subject        string     `db:"subject" json:"subject"`
	Content        string     `db:"content" json:"content"`
	RevisionCount  int        `db:"revision_count" json:"revision_count"`
	Revisions      []Revision `db:"-" json:"revisions,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// NextVersion is the version the next appended revision receives.
func (r *Record) NextVersion() int {
	return r.RevisionCount + 1
}

// Revision is one immutable entry in a record's history.
type Revision struct {
	RecordID   string    `db:"record_id" json:"-"`
	Version    int       `db:"version" json:"version"`
	DiffText   string    `db:"diff_text" json:"diff_text"`
	Note       string    `db:"note" json:"note"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
}

// RevisionView decorates a revision with display statistics.
type RevisionView struct {
	Revision
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}

// RecordDetail is what a viewer sees when opening a record.
type RecordDetail struct {
	Record
	Student Student `json:"student"`
}

// RecordListItem is one row of the shared record list.
type RecordListItem struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	Grade         int       `db:"grade" json:"grade"`
	ClassNumber   int       `db:"class_number" json:"class_number"`
	Number        int       `db:"number" json:"number"`
	StudentName   string    `db:"student_name" json:"student_name"`
	Subject       string    `db:"subject" json:"subject"`
	Content       string    `db:"content" json:"-"`
	RevisionCount int       `db:"revision_count" json:"revision_count"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	Unseen        bool      `db:"-" json:"unseen"`
}
