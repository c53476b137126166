package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/escolalink/disciplina-api/internal/middleware"
	"github.com/escolalink/disciplina-api/internal/models"
	"github.com/escolalink/disciplina-api/internal/service"
	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
)

type fakeReportSrv struct {
	createResp *service.ReportJobResponse
	createErr  error
	lastActor  string
	statusResp *service.ReportStatusResponse
	statusErr  error
	lastRole   models.UserRole
}

func (f *fakeReportSrv) CreateJob(_ context.Context, req service.ReportRequest, actorID string) (*service.ReportJobResponse, error) {
	f.lastActor = actorID
	return f.createResp, f.createErr
}

func (f *fakeReportSrv) GetStatus(_ context.Context, id, actorID string, role models.UserRole) (*service.ReportStatusResponse, error) {
	f.lastActor = actorID
	f.lastRole = role
	return f.statusResp, f.statusErr
}

func (f *fakeReportSrv) ResolveDownload(context.Context, string) (*service.ReportDownload, error) {
	return nil, appErrors.ErrNotFound
}

func TestReportHandlerGenerateRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/reports/generate",
		strings.NewReader(`{"type":"student_history","student_id":"s1","format":"csv"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.GenerateReport(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportHandlerGenerateAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{
		createResp: &service.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued},
	}
	handler := NewReportHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/reports/generate",
		strings.NewReader(`{"type":"student_history","student_id":"s1","format":"csv"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})

	handler.GenerateReport(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "u1", srv.lastActor)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, "job-1", envelope.Data["id"])
	assert.Equal(t, "QUEUED", envelope.Data["status"])
}

func TestReportHandlerGenerateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/reports/generate", strings.NewReader("{broken"))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})

	handler.GenerateReport(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerStatusPassesRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{
		statusResp: &service.ReportStatusResponse{ID: "job-1", Status: models.ReportStatusFinished, Progress: 100},
	}
	handler := NewReportHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/status/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u2", Role: models.RoleMonitor})

	handler.ReportStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", srv.lastActor)
	assert.Equal(t, models.RoleMonitor, srv.lastRole)
}

func TestReportHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{statusErr: appErrors.ErrNotFound})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reports/status/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})

	handler.ReportStatus(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandlerDownloadUnknownToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/export/bogus", nil)
	c.Params = gin.Params{{Key: "token", Value: "bogus"}}

	handler.DownloadReport(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
