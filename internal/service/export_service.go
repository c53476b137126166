package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/escolalink/disciplina-api/internal/models"
	"github.com/escolalink/disciplina-api/pkg/export"
	"github.com/escolalink/disciplina-api/pkg/storage"
)

type historyProvider interface {
	ListHistory(ctx context.Context, studentID string) ([]models.HistoryItem, error)
}

type rosterProvider interface {
	Roster(ctx context.Context, classID string) (*ClassRoster, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds discipline report datasets and persists the rendered
// CSV or PDF files behind signed download URLs.
type ExportService struct {
	history historyProvider
	roster  rosterProvider
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(history historyProvider, roster rosterProvider, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		history: history,
		roster:  roster,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/export/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	var subject string
	switch {
	case job.Params.StudentID != nil:
		subject = sanitizeFilename(*job.Params.StudentID)
	case job.Params.ClassID != nil:
		subject = sanitizeFilename(*job.Params.ClassID)
	default:
		subject = "na"
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), subject, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeStudentHistory:
		return s.buildStudentHistoryDataset(ctx, job.Params)
	case models.ReportTypeClassDiscipline:
		return s.buildClassDisciplineDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildStudentHistoryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	if params.StudentID == nil || *params.StudentID == "" {
		return export.Dataset{}, "", fmt.Errorf("student history report requires a student id")
	}
	items, err := s.history.ListHistory(ctx, *params.StudentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		if params.Year > 0 && item.AcademicYear != params.Year {
			continue
		}
		rows = append(rows, map[string]string{
			"Category":      string(item.Category),
			"Label":         item.Label,
			"Description":   item.Description,
			"Score Effect":  fmt.Sprintf("%+.2f", item.ScoreEffect),
			"Academic Year": fmt.Sprintf("%d", item.AcademicYear),
			"Recorded At":   item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Category", "Label", "Description", "Score Effect", "Academic Year", "Recorded At"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Discipline History %s", *params.StudentID)
	return dataset, title, nil
}

func (s *ExportService) buildClassDisciplineDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	if params.ClassID == nil || *params.ClassID == "" {
		return export.Dataset{}, "", fmt.Errorf("class discipline report requires a class id")
	}
	roster, err := s.roster.Roster(ctx, *params.ClassID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(roster.Students))
	for _, entry := range roster.Students {
		rows = append(rows, map[string]string{
			"Registration": entry.Student.Registration,
			"Student":      entry.Student.FullName,
			"Score":        fmt.Sprintf("%.2f", entry.Student.DisciplinaryScore),
			"Tier":         entry.Tier.Label,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Registration", "Student", "Score", "Tier"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Class Discipline %s", roster.Class.Name)
	return dataset, title, nil
}
