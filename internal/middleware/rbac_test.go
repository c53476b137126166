package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/escolalink/disciplina-api/internal/models"
)

func guardedRouter(claims *models.JWTClaims, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	attach := func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/students", attach, guard, ok)
	r.GET("/students/:id/grade", attach, guard, ok)
	return r
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	r := guardedRouter(nil, RequireRoles(models.RoleAdmin))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleMonitor}
	r := guardedRouter(claims, RequireRolesOrSelf(models.RoleAdmin, models.RoleMonitor))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students/s1/grade", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACGuardianReadsOwnStudent(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u9", Role: models.RoleGuardian, StudentID: "s1"}
	r := guardedRouter(claims, RequireRolesOrSelf(models.RoleAdmin, models.RoleMonitor))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students/s1/grade", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACGuardianBlockedFromOtherStudent(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u9", Role: models.RoleGuardian, StudentID: "s1"}
	r := guardedRouter(claims, RequireRolesOrSelf(models.RoleAdmin, models.RoleMonitor))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students/s2/grade", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACGuardianWithoutLinkedStudentBlocked(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u9", Role: models.RoleGuardian}
	r := guardedRouter(claims, RequireRolesOrSelf(models.RoleAdmin, models.RoleMonitor))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students/s1/grade", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACGuardianBlockedFromStaffRoutes(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u9", Role: models.RoleGuardian, StudentID: "s1"}
	r := guardedRouter(claims, RequireRoles(models.RoleAdmin, models.RoleMonitor))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
