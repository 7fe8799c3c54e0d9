package models

// RosterSkip explains why a roster row was not imported.
type RosterSkip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// RosterImportResult summarises a best-effort roster import.
type RosterImportResult struct {
	Processed      int          `json:"processed"`
	Upserted       int          `json:"upserted"`
	RecordsCreated int          `json:"records_created"`
	Skipped        []RosterSkip `json:"skipped"`
}
