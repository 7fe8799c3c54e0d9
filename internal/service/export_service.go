package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/export"
)

type recordExportSource interface {
	ListForExport(ctx context.Context, collectionCode string) ([]models.RecordListItem, error)
	Get(ctx context.Context, id string) (*models.Record, error)
}

type studentReader interface {
	Get(ctx context.Context, id string) (*models.Student, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

// ExportResult is a rendered file ready to be sent to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

var recordCSVHeaders = []string{"Grade", "Class", "Number", "Name", "Subject", "Revisions", "Updated At", "Content"}

// ExportService renders collection records as CSV and record histories as PDF.
type ExportService struct {
	records  recordExportSource
	students studentReader
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	enabled  bool
}

// NewExportService constructs an ExportService.
func NewExportService(records recordExportSource, students studentReader, enabled bool, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithBOM())
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{records: records, students: students, csv: csv, pdf: pdf, logger: logger, enabled: enabled}
}

// RecordsCSV renders every record of the collection ordered by roster position.
func (s *ExportService) RecordsCSV(ctx context.Context, collection *models.Collection) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrDisabled, "exports are disabled")
	}
	items, err := s.records.ListForExport(ctx, collection.Code)
	if err != nil {
		return nil, err
	}
	sortByRoster(items)

	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"Grade":      strconv.Itoa(item.Grade),
			"Class":      strconv.Itoa(item.ClassNumber),
			"Number":     strconv.Itoa(item.Number),
			"Name":       item.StudentName,
			"Subject":    item.Subject,
			"Revisions":  strconv.Itoa(item.RevisionCount),
			"Updated At": formatExportTime(item.UpdatedAt),
			"Content":    item.Content,
		})
	}
	body, err := s.csv.Render(export.Dataset{Headers: recordCSVHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render csv")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("%s_records_%s.csv", sanitizeFilename(collection.Code), time.Now().UTC().Format("20060102_150405")),
		ContentType: "text/csv; charset=utf-8",
		Body:        body,
	}, nil
}

// RecordPDF renders a record's current content followed by every revision.
func (s *ExportService) RecordPDF(ctx context.Context, collection *models.Collection, recordID string) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrDisabled, "exports are disabled")
	}
	record, err := s.records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.CollectionCode != collection.Code {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	student, err := s.students.Get(ctx, record.StudentID)
	if err != nil {
		return nil, err
	}

	doc := export.Document{
		Title:    fmt.Sprintf("%s - %s", student.Name, record.Subject),
		Subtitle: fmt.Sprintf("%s | grade %d class %d no. %d | updated %s", collection.Name, student.Grade, student.ClassNumber, student.Number, formatExportTime(record.UpdatedAt)),
		Sections: []export.Section{{Heading: "Current content", Body: record.Content}},
	}
	for _, revision := range record.Revisions {
		meta := fmt.Sprintf("%s by %s", formatExportTime(revision.ModifiedAt), revision.ModifiedBy)
		if revision.Note != "" {
			meta += " - " + revision.Note
		}
		doc.Sections = append(doc.Sections, export.Section{
			Heading: fmt.Sprintf("Revision %d", revision.Version),
			Meta:    meta,
			Body:    revision.DiffText,
			Mono:    true,
		})
	}

	body, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render pdf")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("record_%s_v%d.pdf", sanitizeFilename(record.ID), record.RevisionCount),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

func sortByRoster(items []models.RecordListItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.ClassNumber != b.ClassNumber {
			return a.ClassNumber < b.ClassNumber
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		return a.Subject < b.Subject
	})
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
