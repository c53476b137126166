package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/disciplina-api/internal/models"
	"github.com/escolalink/disciplina-api/internal/repository"
	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
	"github.com/escolalink/disciplina-api/pkg/jobs"
)

type mockReportStore struct {
	jobs      map[string]*models.ReportJob
	createErr error
	updates   []repository.UpdateReportJobParams
}

func newMockReportStore() *mockReportStore {
	return &mockReportStore{jobs: make(map[string]*models.ReportJob)}
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	job.Status = models.ReportStatusQueued
	m.jobs[job.ID] = job
	return nil
}

func (m *mockReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	m.updates = append(m.updates, params)
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range m.jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockExporter struct {
	result *ExportResult
	err    error
}

func (m *mockExporter) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	return m.result, m.err
}

func strPtr(s string) *string { return &s }

func TestReportServiceCreateJobQueues(t *testing.T) {
	store := newMockReportStore()
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, dispatcher, nil, nil, ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:      models.ReportTypeStudentHistory,
		StudentID: strPtr("s1"),
		Format:    models.ReportFormatCSV,
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)
	assert.Equal(t, "u1", store.jobs[resp.ID].CreatedBy)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, nil, ReportServiceConfig{})

	cases := []ReportRequest{
		{Type: models.ReportTypeStudentHistory, Format: models.ReportFormatCSV},
		{Type: models.ReportTypeClassDiscipline, Format: models.ReportFormatPDF},
		{Type: "unknown", StudentID: strPtr("s1"), Format: models.ReportFormatCSV},
		{Type: models.ReportTypeStudentHistory, StudentID: strPtr("s1"), Format: "xlsx"},
	}
	for _, req := range cases {
		_, err := svc.CreateJob(context.Background(), req, "u1")
		require.Error(t, err)
		assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
	}
}

func TestReportServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newMockReportStore()
	dispatcher := &mockDispatcher{err: errors.New("queue stopped")}
	svc := NewReportService(store, dispatcher, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:      models.ReportTypeStudentHistory,
		StudentID: strPtr("s1"),
		Format:    models.ReportFormatCSV,
	}, "u1")
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
}

func TestReportServiceGetStatusOwnership(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = &models.ReportJob{
		ID: "job-1", Status: models.ReportStatusFinished, Progress: 100, CreatedBy: "u1",
	}
	svc := NewReportService(store, &mockDispatcher{}, nil, nil, ReportServiceConfig{})

	// Creators and admins may read; other monitors may not.
	_, err := svc.GetStatus(context.Background(), "job-1", "u1", models.RoleMonitor)
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), "job-1", "u2", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), "job-1", "u2", models.RoleMonitor)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))
}

func TestReportServiceGetStatusUnknownJob(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, nil, ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), "missing", "u1", models.RoleAdmin)
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestReportWorkerFinishesJob(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeStudentHistory,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{StudentID: strPtr("s1"), Format: models.ReportFormatCSV},
	}
	exporter := &mockExporter{result: &ExportResult{URL: "/api/v1/export/tok", Format: models.ReportFormatCSV}}
	worker := NewReportWorker(store, exporter, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: "student_history"})
	require.NoError(t, err)

	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/tok", *job.ResultURL)
	assert.NotNil(t, job.FinishedAt)
}

func TestReportWorkerRequeuesBeforeRetryLimit(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeStudentHistory,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{StudentID: strPtr("s1"), Format: models.ReportFormatCSV},
	}
	worker := NewReportWorker(store, &mockExporter{err: errors.New("render failed")}, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, store.jobs["job-1"].Status)
	assert.Equal(t, 0, store.jobs["job-1"].Progress)
}

func TestReportWorkerFailsAtRetryLimit(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeStudentHistory,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{StudentID: strPtr("s1"), Format: models.ReportFormatCSV},
	}
	worker := NewReportWorker(store, &mockExporter{err: errors.New("render failed")}, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)

	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)
	assert.NotNil(t, job.FinishedAt)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Type: models.ReportTypeStudentHistory, Status: models.ReportStatusQueued}
	store.jobs["job-2"] = &models.ReportJob{ID: "job-2", Type: models.ReportTypeClassDiscipline, Status: models.ReportStatusFinished}
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, dispatcher, nil, nil, ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())

	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, "job-1", dispatcher.enqueued[0].ID)
}
