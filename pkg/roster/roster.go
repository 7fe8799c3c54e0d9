// Package roster reads student roster CSV files. The first row is a header;
// Korean and English column names are both accepted.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMissingColumns is returned when the header names neither a student name
// nor a card code column.
var ErrMissingColumns = errors.New("roster header must include name and student card code columns")

// Row is one parsed roster line. Line is the 1-based line number in the file.
// Problem is set, and the values left empty, when the line is not valid CSV.
type Row struct {
	Line            int    `json:"line"`
	Grade           int    `json:"grade"`
	ClassNumber     int    `json:"class_number"`
	Number          int    `json:"number"`
	Name            string `json:"name"`
	StudentCardCode string `json:"student_card_code"`
	Problem         string `json:"problem,omitempty"`
}

const (
	fieldGrade = iota
	fieldClass
	fieldNumber
	fieldName
	fieldCard
)

// Aliases are checked in order; the first present column wins.
var aliases = map[int][]string{
	fieldGrade:  {"학년", "grade", "Grade"},
	fieldClass:  {"반", "class", "klass", "Class"},
	fieldNumber: {"번호", "number", "No", "num"},
	fieldName:   {"이름", "name", "Name"},
	fieldCard:   {"학생증코드", "studentCardCode", "card", "code"},
}

// Parse reads every data row. Rows with missing values are returned as-is and
// malformed lines come back with Problem set; deciding what to skip is up to
// the caller. Only a bad header or a read failure aborts the parse.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read roster header: %w", err)
	}
	columns := resolveColumns(header)
	if _, ok := columns[fieldName]; !ok {
		return nil, ErrMissingColumns
	}
	if _, ok := columns[fieldCard]; !ok {
		return nil, ErrMissingColumns
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			rows = append(rows, Row{Line: parseErr.StartLine, Problem: parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return rows, fmt.Errorf("read roster row: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, Row{
			Line:            line,
			Grade:           atoi(cell(record, columns, fieldGrade)),
			ClassNumber:     atoi(cell(record, columns, fieldClass)),
			Number:          atoi(cell(record, columns, fieldNumber)),
			Name:            cell(record, columns, fieldName),
			StudentCardCode: cell(record, columns, fieldCard),
		})
	}
	return rows, nil
}

func resolveColumns(header []string) map[int]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	columns := make(map[int]int, len(aliases))
	for field, names := range aliases {
		for _, name := range names {
			if i, ok := index[name]; ok {
				columns[field] = i
				break
			}
		}
	}
	return columns
}

func cell(record []string, columns map[int]int, field int) string {
	i, ok := columns[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func atoi(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
