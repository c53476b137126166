package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/escolalink/disciplina-api/internal/models"
	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
)

type mockUserRepo struct {
	users  map[string]*models.User
	audits []*models.AuditLog
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func newAuthFixture(users ...*models.User) (*AuthService, *mockUserRepo) {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "disciplina-api",
	})
	return svc, repo
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesGuardianClaimsWithStudentLink(t *testing.T) {
	studentID := "s1"
	svc, _ := newAuthFixture(&models.User{
		ID:           "u9",
		Email:        "responsavel@example.com",
		PasswordHash: hashPassword(t, "senha123"),
		FullName:     "Rita Lima",
		Role:         models.RoleGuardian,
		StudentID:    &studentID,
		Active:       true,
	})

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "responsavel@example.com",
		Password: "senha123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuardian, claims.Role)
	assert.Equal(t, "s1", claims.StudentID)
	assert.True(t, claims.OwnsStudent("s1"))
	assert.False(t, claims.OwnsStudent("s2"))
}

func TestLoginStaffClaimsCarryNoStudentLink(t *testing.T) {
	svc, _ := newAuthFixture(&models.User{
		ID:           "u1",
		Email:        "admin@example.com",
		PasswordHash: hashPassword(t, "senha123"),
		FullName:     "Carlos Prado",
		Role:         models.RoleAdmin,
		Active:       true,
	})

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "senha123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.StudentID)
	assert.False(t, claims.OwnsStudent("s1"))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(&models.User{
		ID:           "u1",
		Email:        "admin@example.com",
		PasswordHash: hashPassword(t, "senha123"),
		Role:         models.RoleAdmin,
		Active:       true,
	})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "errada",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInvalidCredentials.Code))
}
