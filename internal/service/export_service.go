package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/pkg/export"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

var rosterHeaders = []string{"Name", "Username", "Email", "Course", "Status", "Grade"}

// ExportResult describes a written export file.
type ExportResult struct {
	RelativePath string
	Path         string
	Format       export.Format
	Rows         int
}

// ExportService renders the instructor's student roster to disk.
type ExportService struct {
	api     listAPI
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	now     func() time.Time
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the pkg/export defaults.
func NewExportService(api listAPI, storage fileStorage, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{api: api, storage: storage, csv: csv, pdf: pdf, now: time.Now, logger: logger}
}

// Students writes one row per student and course, in list order.
func (s *ExportService) Students(ctx context.Context, format export.Format) (*ExportResult, error) {
	var raw json.RawMessage
	resource := StudentResource()
	if err := s.api.Get(ctx, resource.ListPath, nil, &raw); err != nil {
		return nil, err
	}
	var students []models.StudentRecord
	if err := gateway.DecodeCollection(raw, resource.CollectionKey, &students); err != nil {
		return nil, err
	}

	dataset := RosterDataset(students)
	var (
		payload []byte
		err     error
	)
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.filename(format), payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("roster exported", zap.String("path", relPath), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		RelativePath: relPath,
		Path:         s.storage.Path(relPath),
		Format:       format,
		Rows:         len(dataset.Rows),
	}, nil
}

// RosterDataset flattens students into roster rows. A student without
// courses still gets one row.
func RosterDataset(students []models.StudentRecord) export.Dataset {
	data := export.Dataset{Title: "Student roster", Headers: rosterHeaders}
	for _, st := range students {
		base := []string{st.DisplayName(), st.Username, st.Email}
		if len(st.Courses) == 0 {
			data.Rows = append(data.Rows, append(base, "", "", ""))
			continue
		}
		for _, e := range st.Courses {
			grade := ""
			if e.Grade != nil {
				grade = formatNumber(*e.Grade)
			}
			row := append(append([]string(nil), base...), e.CourseName, string(e.Status), grade)
			data.Rows = append(data.Rows, row)
		}
	}
	return data
}

func (s *ExportService) filename(format export.Format) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("students_%s_%s%s", timestamp, suffix, format.Extension())
}
